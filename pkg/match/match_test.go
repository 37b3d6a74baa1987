package match

import (
	"reflect"
	"testing"
)

func TestPythonMatch(t *testing.T) {
	type args struct {
		s string
	}

	tests := []struct {
		name  string
		args  args
		want  Operation
		want1 string
	}{
		{
			name: "normal",
			args: args{s: "django"},
			want: Unknown,
		},
		{
			name: "unrelated",
			args: args{s: "kubernetes"},
			want: Unknown,
		},
		{
			name:  "confusion",
			args:  args{s: "reqeusts"},
			want:  Confusion,
			want1: "requests",
		},
		{
			name:  "malware",
			args:  args{s: "smb"},
			want:  Malware,
			want1: "pysmb",
		},
		{
			name:  "malware upper case",
			args:  args{s: "Colourama"},
			want:  Malware,
			want1: "colorama",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PyMatch(tt.args.s)
			if got.Types != tt.want || got.OriginPack != tt.want1 {
				t.Errorf("PyMatch() got = %v, want %v %v", got, tt.want, tt.want1)
			}
		})
	}
}

func TestPythonNormalPackages(t *testing.T) {
	for _, p := range pypis {
		t.Run(p, func(t *testing.T) {
			got := PyMatch(p)
			if !reflect.DeepEqual(got, Suspicion{Types: Unknown}) {
				t.Errorf("PyMatch() got = %v, want unknown", got)
			}
		})
	}
}

func TestNodeMatch(t *testing.T) {
	type args struct {
		s string
	}

	tests := []struct {
		name  string
		args  args
		want  Operation
		want1 string
	}{
		{
			name:  "confusion",
			args:  args{s: "ladash"},
			want:  Confusion,
			want1: "lodash",
		},
		{
			name:  "confusion2",
			args:  args{s: "socketio"},
			want:  Confusion,
			want1: "socket.io",
		},
		{
			name:  "malware",
			args:  args{s: "crossenv"},
			want:  Malware,
			want1: "cross-env",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NpmMatch(tt.args.s)
			if got.Types != tt.want || got.OriginPack != tt.want1 {
				t.Errorf("NpmMatch() got = %v, want %v %v", got, tt.want, tt.want1)
			}
		})
	}
}

func TestNpmNormalPackages(t *testing.T) {
	for _, p := range npms {
		t.Run(p, func(t *testing.T) {
			got := NpmMatch(p)
			if !reflect.DeepEqual(got, Suspicion{Types: Unknown}) {
				t.Errorf("NpmMatch() got = %v, want unknown", got)
			}
		})
	}
}

func TestMatchEcosystem(t *testing.T) {
	if got := Match("npm", "ladash"); got.Types != Confusion {
		t.Errorf("Match(npm) got = %v", got)
	}
	if got := Match("pypi", "smb"); got.OriginPack != "pysmb" {
		t.Errorf("Match(pypi) got = %v", got)
	}
	if got := Match("maven", "ladash"); got.Types != Unknown {
		t.Errorf("Match(maven) got = %v", got)
	}
}

func TestRatio(t *testing.T) {
	if r := Ratio("abc", "abc"); r != 1.0 {
		t.Errorf("Ratio() = %v, want 1", r)
	}
	if r := Ratio("", ""); r != 1.0 {
		t.Errorf("Ratio() = %v, want 1", r)
	}
	if r := Ratio("abcd", "wxyz"); r != 0 {
		t.Errorf("Ratio() = %v, want 0", r)
	}
}
