package platform

import (
	"bufio"
	"os"
	"os/exec"
	"strings"

	"github.com/multiscanner/msbootstrap/models"
)

const osReleasePath = "/etc/os-release"

// Detect reports which OS package family the host belongs to. It probes for
// the package-manager binaries first and falls back to /etc/os-release.
// Detection never fails: an unrecognizable host is reported as
// PlatformUnknown and the caller downgrades OS package installation to a
// warned skip.
func Detect() models.Platform {
	for _, mgr := range []string{"dnf", "yum"} {
		if _, err := exec.LookPath(mgr); err == nil {
			return models.PlatformRPM
		}
	}
	if _, err := exec.LookPath("apt-get"); err == nil {
		return models.PlatformDeb
	}
	return fromOSRelease(osReleasePath)
}

func fromOSRelease(path string) models.Platform {
	f, err := os.Open(path)
	if err != nil {
		return models.PlatformUnknown
	}
	defer f.Close()

	ids := make([]string, 0, 2)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "ID="); ok {
			ids = append(ids, strings.Trim(v, `"`))
		}
		if v, ok := strings.CutPrefix(line, "ID_LIKE="); ok {
			ids = append(ids, strings.Fields(strings.Trim(v, `"`))...)
		}
	}

	for _, id := range ids {
		switch strings.ToLower(id) {
		case "rhel", "centos", "fedora", "rocky", "almalinux", "amzn":
			return models.PlatformRPM
		case "debian", "ubuntu":
			return models.PlatformDeb
		}
	}
	return models.PlatformUnknown
}

// PackageManager returns the install command prefix for a platform, or nil
// when the platform is unknown.
func PackageManager(p models.Platform) []string {
	switch p {
	case models.PlatformRPM:
		if _, err := exec.LookPath("dnf"); err == nil {
			return []string{"dnf", "install", "-y"}
		}
		return []string{"yum", "install", "-y"}
	case models.PlatformDeb:
		return []string{"apt-get", "install", "-y"}
	default:
		return nil
	}
}
