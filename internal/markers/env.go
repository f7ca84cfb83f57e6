// Package markers implements PEP 508 environment markers: boolean
// expressions over environment keys (python_version, sys_platform,...)
// plus the distinguished extra key, with the disjointness decision
// procedure the fork engine needs.
package markers

import "github.com/bilusteknoloji/pvsolve/internal/pep440"

// Key identifies one of the environment variables a marker clause can
// reference. Version-valued keys are compared with the pep440 Range
// algebra; the rest are treated as finite string domains.
type Key string

const (
	KeyPythonVersion     Key = "python_version"
	KeyPythonFullVersion Key = "python_full_version"
	KeyOSName            Key = "os_name"
	KeySysPlatform       Key = "sys_platform"
	KeyPlatformMachine   Key = "platform_machine"
	KeyPlatformRelease   Key = "platform_release"
	KeyPlatformSystem    Key = "platform_system"
	KeyPlatformVersion   Key = "platform_version"
	KeyImplementationName Key = "implementation_name"
	KeyExtra             Key = "extra"
)

func (k Key) isVersionValued() bool {
	switch k {
	case KeyPythonVersion, KeyPythonFullVersion, KeyPlatformRelease:
		return true
	default:
		return false
	}
}

// Env is the concrete environment a MarkerTree is evaluated against.
type Env struct {
	PythonVersion      string
	PythonFullVersion  string
	OSName             string
	SysPlatform        string
	PlatformMachine    string
	PlatformRelease    string
	PlatformSystem     string
	PlatformVersion    string
	ImplementationName string
}

func (e Env) lookup(k Key) string {
	switch k {
	case KeyPythonVersion:
		return e.PythonVersion
	case KeyPythonFullVersion:
		return e.PythonFullVersion
	case KeyOSName:
		return e.OSName
	case KeySysPlatform:
		return e.SysPlatform
	case KeyPlatformMachine:
		return e.PlatformMachine
	case KeyPlatformRelease:
		return e.PlatformRelease
	case KeyPlatformSystem:
		return e.PlatformSystem
	case KeyPlatformVersion:
		return e.PlatformVersion
	case KeyImplementationName:
		return e.ImplementationName
	default:
		return ""
	}
}

func versionRangeForValue(raw string) (pep440.Range, bool) {
	v, err := pep440.Parse(raw)
	if err != nil {
		return pep440.Range{}, false
	}

	return pep440.Singleton(v), true
}
