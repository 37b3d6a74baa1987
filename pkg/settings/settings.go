package settings

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/kvesta/depcheck/config"
	"github.com/spf13/viper"
)

const envPrefix = "DEPCHECK"

// Settings is the key/value store shared by a task, its engine and the analyzers.
// A fresh instance is created for every task execution.
type Settings struct {
	v *viper.Viper

	mu      sync.Mutex
	tempDir string
}

// New returns settings populated with defaults. Values can be overridden through
// DEPCHECK_* environment variables, e.g. DEPCHECK_CVE_CHECK_VALIDFORHOURS.
func New() *Settings {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	return &Settings{v: v}
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		KeyAutoUpdate:           true,
		KeyAnalyzerExperimental: false,
		KeyAnalyzerArchive:      true,
		KeyAnalyzerJar:          true,
		KeyAnalyzerCentral:      true,
		KeyAnalyzerCentralURL:   "https://search.maven.org/solrsearch/select",
		KeyAnalyzerNexus:        true,
		KeyAnalyzerNexusURL:     "https://repository.sonatype.org/service/local/",
		KeyAnalyzerNexusProxy:   true,
		KeyAnalyzerNodePackage:  true,
		KeyAnalyzerComposerLock: true,
		KeyAnalyzerPyDist:       true,
		KeyAnalyzerPyPackage:    true,
		KeyAnalyzerRubyGemspec:  true,
		KeyAnalyzerBundleAudit:  true,
		KeyAnalyzerNuspec:       true,
		KeyAnalyzerAssembly:     true,
		KeyAnalyzerCMake:        true,
		KeyAnalyzerAutoconf:     true,
		KeyAnalyzerOpenSSL:      true,
		KeyAnalyzerCocoapods:    true,
		KeyAnalyzerSwift:        true,
		KeyAnalyzerGolangMod:    true,
		KeyAnalyzerCargo:        true,
		KeyAnalyzerHint:         true,
		KeyAnalyzerCPE:          true,
		KeyAnalyzerNvdCve:       true,
		KeyAnalyzerSuppression:  true,
		KeyAnalyzerTyposquat:    true,
		KeyConnectionTimeout:    "60000",
		KeyDBDriverName:         "sqlite3",
		KeyCveURLBase:           "https://nvd.nist.gov/feeds/json/cve/1.1/nvdcve-1.1-%d.json.gz",
		KeyCveURLModified:       "https://nvd.nist.gov/feeds/json/cve/1.1/nvdcve-1.1-modified.json.gz",
		KeyCveValidForHours:     4,
		KeyCveStartYear:         2002,
	}
}

// SetBooleanIfNotNull stores value only when it was explicitly configured.
func (s *Settings) SetBooleanIfNotNull(key string, value *bool) {
	if value != nil {
		s.v.Set(key, *value)
	}
}

// SetStringIfNotNull stores value only when it was explicitly configured,
// empty strings included.
func (s *Settings) SetStringIfNotNull(key string, value *string) {
	if value != nil {
		s.v.Set(key, *value)
	}
}

// SetStringIfNotEmpty stores value only when it is configured and non-empty.
func (s *Settings) SetStringIfNotEmpty(key string, value *string) {
	if value != nil && *value != "" {
		s.v.Set(key, *value)
	}
}

func (s *Settings) SetIntIfNotNull(key string, value *int) {
	if value != nil {
		s.v.Set(key, *value)
	}
}

func (s *Settings) SetBoolean(key string, value bool) {
	s.v.Set(key, value)
}

func (s *Settings) SetString(key, value string) {
	s.v.Set(key, value)
}

func (s *Settings) SetInt(key string, value int) {
	s.v.Set(key, value)
}

func (s *Settings) IsSet(key string) bool {
	return s.v.IsSet(key)
}

func (s *Settings) Bool(key string) bool {
	return s.v.GetBool(key)
}

func (s *Settings) String(key string) string {
	return s.v.GetString(key)
}

func (s *Settings) Int(key string) int {
	return s.v.GetInt(key)
}

// StringSlice splits a comma separated value, trimming blanks.
func (s *Settings) StringSlice(key string) []string {
	var values []string
	for _, part := range strings.Split(s.v.GetString(key), ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}

// ConnectionTimeout is stored in milliseconds, like the other timeout settings.
func (s *Settings) ConnectionTimeout() time.Duration {
	ms := s.v.GetInt(KeyConnectionTimeout)
	if ms <= 0 {
		return 60 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}

// DataDirectory returns the configured data directory, or the per-user default
// ~/.depcheck (depcheckdata under the working directory on windows).
func (s *Settings) DataDirectory() (string, error) {
	if dir := s.v.GetString(KeyDataDirectory); dir != "" {
		return dir, nil
	}

	if runtime.GOOS == "windows" {
		dir, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "depcheckdata"), nil
	}

	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".depcheck"), nil
}

// TempDirectory returns a scratch directory owned by these settings. It is created
// on first use and removed by Cleanup.
func (s *Settings) TempDirectory() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tempDir != "" {
		return s.tempDir, nil
	}

	dir, err := os.MkdirTemp(s.v.GetString(KeyTempDirectory), "depcheck-")
	if err != nil {
		return "", err
	}
	s.tempDir = dir
	return dir, nil
}

// Cleanup releases the settings. With deleteTemporary the scratch directory is removed.
func (s *Settings) Cleanup(deleteTemporary bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deleteTemporary && s.tempDir != "" {
		if err := os.RemoveAll(s.tempDir); err != nil {
			config.Warnf("failed to remove temp directory %s: %v", s.tempDir, err)
		}
		s.tempDir = ""
	}
}
