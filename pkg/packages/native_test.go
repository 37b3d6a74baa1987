package packages

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCMake(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []*Package
	}{
		{
			name:    "project version",
			content: "cmake_minimum_required(VERSION 3.10)\nproject(zlib VERSION 1.2.11 LANGUAGES C)\n",
			want:    []*Package{{Name: "zlib", Version: "1.2.11"}},
		},
		{
			name:    "set version",
			content: "project(libpng C)\n# project(commented)\nset(LIBPNG_VERSION \"1.6.37\")\n",
			want:    []*Package{{Name: "libpng", Version: "1.6.37"}},
		},
		{
			name:    "no project",
			content: "add_library(foo foo.c)\n",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCMake(strings.NewReader(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAutoconf(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *Package
		wantErr bool
	}{
		{
			name:    "configure.ac",
			content: "dnl Process this file\nAC_INIT([GNU Hello], [2.10], [bug-hello@gnu.org], [hello], [https://www.gnu.org/software/hello/])\nAM_INIT_AUTOMAKE\n",
			want:    &Package{Name: "GNU Hello", Version: "2.10", Homepage: "https://www.gnu.org/software/hello/"},
		},
		{
			name:    "unquoted",
			content: "AC_INIT(libfoo, 0.3)\n",
			want:    &Package{Name: "libfoo", Version: "0.3"},
		},
		{
			name:    "configure script",
			content: "#! /bin/sh\nPACKAGE_NAME='curl'\nPACKAGE_VERSION='7.68.0'\nPACKAGE_URL=''\n",
			want:    &Package{Name: "curl", Version: "7.68.0"},
		},
		{
			name:    "missing",
			content: "echo hello\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAutoconf(strings.NewReader(tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOpenSSLVersion(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{name: "1.1.1g", content: "# define OPENSSL_VERSION_NUMBER  0x1010107fL\n", want: "1.1.1g"},
		{name: "1.0.2k", content: "#define OPENSSL_VERSION_NUMBER\t0x100020bfL\n", want: "1.0.2k"},
		{name: "1.0.0 release", content: "#define OPENSSL_VERSION_NUMBER 0x1000000fL\n", want: "1.0.0"},
		{
			name:    "3.x parts",
			content: "# define OPENSSL_VERSION_MAJOR  3\n# define OPENSSL_VERSION_MINOR  0\n# define OPENSSL_VERSION_PATCH  7\n",
			want:    "3.0.7",
		},
		{name: "text", content: "# define OPENSSL_VERSION_TEXT \"OpenSSL 1.1.0l  10 Sep 2019\"\n", want: "1.1.0l"},
		{name: "none", content: "/* nothing */\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOpenSSLVersion(strings.NewReader(tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSwiftPackage(t *testing.T) {
	got, err := ParseSwiftPackage(strings.NewReader(`// swift-tools-version:5.3
import PackageDescription

let package = Package(
    name: "Alamofire",
    platforms: [.iOS(.v10)]
)`))
	require.NoError(t, err)
	assert.Equal(t, "Alamofire", got.Name)

	_, err = ParseSwiftPackage(strings.NewReader("import Foundation"))
	assert.Error(t, err)
}

func TestParseGoMod(t *testing.T) {
	data := []byte(`module github.com/acme/app

go 1.21

require (
	github.com/spf13/cobra v1.8.0
	github.com/go-yaml/yaml/v2 v2.4.0 // indirect
	golang.org/x/text v0.3.0
)

replace golang.org/x/text => golang.org/x/text v0.3.8
`)

	got, err := ParseGoMod("go.mod", data)
	require.NoError(t, err)

	assert.Equal(t, "github.com/acme/app", got.Path)
	assert.Equal(t, "app", got.Name)
	assert.Equal(t, "1.21", got.GoVersion)
	require.Len(t, got.Deps, 3)

	assert.Equal(t, &MOD{Name: "cobra", Path: "github.com/spf13/cobra", Version: "v1.8.0"}, got.Deps[0])
	assert.Equal(t, &MOD{Name: "yaml", Path: "github.com/go-yaml/yaml/v2", Version: "v2.4.0", Indirect: true}, got.Deps[1])
	assert.Equal(t, "v0.3.8", got.Deps[2].Version)

	_, err = ParseGoMod("go.mod", []byte("module"))
	assert.Error(t, err)
}

func TestModVendor(t *testing.T) {
	assert.Equal(t, "spf13", ModVendor("github.com/spf13/cobra"))
	assert.Equal(t, "x", ModVendor("golang.org/x/text"))
	assert.Equal(t, "gopkg", ModVendor("gopkg.in/yaml.v3"))
	assert.Equal(t, "", ModVendor("cobra"))
}

func TestParseGoBinaryNotExecutable(t *testing.T) {
	_, err := ParseGoBinary(strings.NewReader("plain text"))
	assert.Error(t, err)
}

func TestParseCargoLock(t *testing.T) {
	got, err := ParseCargoLock(strings.NewReader(`
version = 3

[[package]]
name = "app"
version = "0.1.0"
dependencies = ["smallvec"]

[[package]]
name = "smallvec"
version = "1.6.0"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "fe0f37c9e8f3c5a4a66ad655a93c74daac4ad00e"
`))
	require.NoError(t, err)

	assert.Equal(t, "app", got.Name)
	require.Len(t, got.Deps, 1)
	assert.Equal(t, "smallvec", got.Deps[0].Name)
	assert.Equal(t, "1.6.0", got.Deps[0].Version)
}
