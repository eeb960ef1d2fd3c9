package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   DialInfo
		want string
	}{
		{
			name: "default port",
			in:   DialInfo{Addr: "db.local", DBName: "changelog", User: "laisky", Pwd: "secret"},
			want: "host=db.local port=5432 user=laisky password=secret dbname=changelog sslmode=disable TimeZone=UTC",
		},
		{
			name: "explicit port",
			in:   DialInfo{Addr: "db.local:6543", DBName: "changelog", User: "laisky", Pwd: "secret"},
			want: "host=db.local port=6543 user=laisky password=secret dbname=changelog sslmode=disable TimeZone=UTC",
		},
		{
			name: "quoted password",
			in:   DialInfo{Addr: "db.local", DBName: "changelog", User: "laisky", Pwd: "it's a pw"},
			want: `host=db.local port=5432 user=laisky password='it\'s a pw' dbname=changelog sslmode=disable TimeZone=UTC`,
		},
		{
			name: "empty password",
			in:   DialInfo{Addr: "db.local", DBName: "changelog", User: "laisky"},
			want: "host=db.local port=5432 user=laisky password='' dbname=changelog sslmode=disable TimeZone=UTC",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, BuildDSN(tc.in))
		})
	}
}
