// Package credentials reads the provider credential files maintained by the
// receiver's configuration screens. The store is read-only: writing the
// files is the collaborator's job, and the values are treated as opaque
// strings here.
package credentials

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	apiKeyFile = "opensubtitles_apikey.txt"
	loginFile  = "opensubtitles_login.txt"
)

// Store holds the credentials for both backend variants. Missing files leave
// the corresponding fields empty; the active backend reports the failure when
// it actually needs the credential.
type Store struct {
	APIKey   string
	Username string
	Password string
}

// Load reads the credential files from dir. A missing file is not an error.
func Load(dir string) (*Store, error) {
	store := &Store{}

	apiKey, err := readAPIKey(filepath.Join(dir, apiKeyFile))
	if err != nil {
		return nil, fmt.Errorf("reading API key file: %w", err)
	}
	store.APIKey = apiKey

	username, password, err := readLogin(filepath.Join(dir, loginFile))
	if err != nil {
		return nil, fmt.Errorf("reading login file: %w", err)
	}
	store.Username = username
	store.Password = password

	return store, nil
}

// HasAPIKey reports whether a REST API key is configured.
func (s *Store) HasAPIKey() bool {
	return s.APIKey != ""
}

// HasLogin reports whether a legacy username/password pair is configured.
func (s *Store) HasLogin() bool {
	return s.Username != "" && s.Password != ""
}

// readAPIKey parses an "apikey=<token>" line, tolerating a bare token with no
// key prefix since older installs wrote the file that way.
func readAPIKey(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var bare string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if value, ok := strings.CutPrefix(line, "apikey="); ok {
			return strings.TrimSpace(value), nil
		}
		if bare == "" && !strings.Contains(line, "=") {
			bare = line
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return bare, nil
}

// readLogin parses the two-line "user=<name>" / "pass=<secret>" file.
func readLogin(path string) (string, string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", nil
		}
		return "", "", err
	}
	defer file.Close()

	var username, password string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if value, ok := strings.CutPrefix(line, "user="); ok {
			username = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(line, "pass="); ok {
			password = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", "", err
	}
	return username, password, nil
}
