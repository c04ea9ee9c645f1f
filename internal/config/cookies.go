package config

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cookie file permissions: owner read/write only, the file carries session
// credentials for the extraction stack.
const cookieFileMode = 0600

// Netscape cookie file layout: domain, subdomain flag, path, secure flag,
// expiry, name, value.
const cookieFieldCount = 7

// WriteCookieFile decodes the base64 credential blob from the environment and
// writes it to path. Returns false with a nil error when the variable is not
// set; the server then runs without an authenticated session.
func WriteCookieFile(path string) (bool, error) {
	b64 := os.Getenv(EnvCookiesB64)
	if b64 == "" {
		return false, nil
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", EnvCookiesB64, err)
	}

	if err := os.WriteFile(path, data, cookieFileMode); err != nil {
		return false, fmt.Errorf("write cookie file %s: %w", path, err)
	}

	return true, nil
}

// HasCookieFile reports whether a cookie file exists at path.
func HasCookieFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// NewCookieJar parses the Netscape-format cookie file at path into a cookie
// jar ready to be set on the shared HTTP client. Expired and malformed lines
// are skipped.
func NewCookieJar(path string) (http.CookieJar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cookie file: %w", err)
	}
	defer f.Close()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	byHost := make(map[string][]*http.Cookie)
	now := time.Now()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// yt-dlp marks HttpOnly cookies with a prefixed comment
		line = strings.TrimPrefix(line, "#HttpOnly_")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != cookieFieldCount {
			continue
		}

		expires, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			continue
		}
		if expires != 0 && time.Unix(expires, 0).Before(now) {
			continue
		}

		host := strings.TrimPrefix(fields[0], ".")
		byHost[host] = append(byHost[host], &http.Cookie{
			Name:   fields[5],
			Value:  fields[6],
			Path:   fields[2],
			Domain: fields[0],
			Secure: strings.EqualFold(fields[3], "TRUE"),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}

	for host, cookies := range byHost {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host}, cookies)
	}

	return jar, nil
}
