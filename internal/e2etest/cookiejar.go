package e2etest

import (
	"github.com/myrjola/casebook/internal/errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
)

// plainHTTPJar keeps the Secure session and CSRF cookies the server sets even when the test server speaks plain http.
type plainHTTPJar struct {
	jar *cookiejar.Jar
}

func newPlainHTTPJar() (*plainHTTPJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "new cookie jar")
	}
	return &plainHTTPJar{jar: jar}, nil
}

func (j *plainHTTPJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	insecure := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		c := *cookie
		if u.Scheme == "http" {
			c.Secure = false
		}
		insecure = append(insecure, &c)
	}
	j.jar.SetCookies(u, insecure)
}

func (j *plainHTTPJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// has reports whether a cookie called name would be sent to u.
func (j *plainHTTPJar) has(u *url.URL, name string) bool {
	return slices.ContainsFunc(j.jar.Cookies(u), func(c *http.Cookie) bool { return c.Name == name })
}
