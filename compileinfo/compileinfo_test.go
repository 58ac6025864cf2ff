package compileinfo

import "testing"

func TestString(t *testing.T) {
	tests := []struct {
		info     CompileInfo
		expected string
		short    string
	}{
		{
			CompileInfo{Package: "github.com/carbocation/optmap/cmd/restitution", GoVersion: "go1.18"},
			"github.com/carbocation/optmap/cmd/restitution (go1.18), built outside version control",
			"",
		},
		{
			CompileInfo{Package: "p", GoVersion: "go1.18", Commit: "0123456789abcdef", CommitTime: "2022-03-01T00:00:00Z"},
			"p (go1.18) at commit 0123456789ab from 2022-03-01T00:00:00Z",
			"0123456789ab",
		},
		{
			CompileInfo{Package: "p", GoVersion: "go1.18", Commit: "abc", CommitTime: "t", Modified: true},
			"p (go1.18) at commit abc+ from t, with uncommitted changes",
			"abc+",
		},
	}

	for _, v := range tests {
		if got := v.info.String(); got != v.expected {
			t.Fatalf("String() = %q, expected %q", got, v.expected)
		}
		if got := v.info.Short(); got != v.short {
			t.Fatalf("Short() = %q, expected %q", got, v.short)
		}
	}
}
