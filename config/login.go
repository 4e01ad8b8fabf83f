package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"nanofab-cli/client"
)

const (
	configDirName = "nanofab-cli"
	loginFileName = "login.json"
)

// Dir returns the app's config directory, creating it if needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, configDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// LoginPath returns the location of the saved credentials file.
func LoginPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, loginFileName), nil
}

// SaveLogin persists credentials for later sessions.
func SaveLogin(login client.Login) error {
	path, err := LoginPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(login, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadLogin reads saved credentials. ok is false when none are saved.
func LoadLogin() (login client.Login, ok bool, err error) {
	path, err := LoginPath()
	if err != nil {
		return client.Login{}, false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return client.Login{}, false, nil
	}
	if err != nil {
		return client.Login{}, false, err
	}
	if err := json.Unmarshal(data, &login); err != nil {
		return client.Login{}, false, err
	}
	return login, true, nil
}

// DeleteLogin removes saved credentials. Missing file is not an error.
func DeleteLogin() error {
	path, err := LoginPath()
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// HasSavedLogin reports whether credentials are on disk.
func HasSavedLogin() bool {
	path, err := LoginPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
