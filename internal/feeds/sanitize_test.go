package feeds

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeLink(t *testing.T) {
	cases := []struct {
		link, site, want string
	}{
		{"http://localhost:4000/posts/a/", "https://blog.example", "https://blog.example/posts/a/"},
		{"http://127.0.0.1/p?id=1", "http://blog.example/", "https://blog.example/p?id=1"},
		{"http://192.168.1.10:8080/2024/hello.html", "https://blog.example/sub/", "https://blog.example/sub/2024/hello.html"},
		{"http://localhost", "https://blog.example", "https://blog.example/"},
		{"https://blog.example/a", "https://other.example", "https://blog.example/a"},
		{"https://1.2.3.example/a", "https://blog.example", "https://1.2.3.example/a"},
		{"http://999.1.1.1/x", "https://blog.example", "https://blog.example/x"},
		{"http://127.0.0.1/a%2Fb", "https://blog.example", "https://blog.example/a%2Fb"},
		{"http://127.0.0.1/a%2Fb?q=1", "https://blog.example/sub", "https://blog.example/sub/a%2Fb?q=1"},
		{"http://1.2.3.4.5/x", "https://blog.example", "http://1.2.3.4.5/x"},
		{"", "https://blog.example", ""},
		{"http://localhost/a", "", "http://localhost/a"},
		{"http://localhost/a", "::bad", "http://localhost/a"},
		{"http://[::1]:%zz/a", "https://blog.example", "http://[::1]:%zz/a"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, SanitizeLink(c.link, c.site), "link=%q site=%q", c.link, c.site)
	}
}

func TestSanitizeLink_Idempotent(t *testing.T) {
	links := []string{
		"http://localhost:4000/posts/a/",
		"http://10.0.0.2/x?y=1",
		"http://127.0.0.1/a%2Fb",
		"https://blog.example/ok",
	}
	sites := []string{"https://blog.example/blog/", "http://127.0.0.1:8080/", "https://blog.example"}
	for _, site := range sites {
		for _, l := range links {
			once := SanitizeLink(l, site)
			require.Equal(t, once, SanitizeLink(once, site), "link=%q site=%q", l, site)
		}
	}
}
