package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Settings is the effective connection configuration of one CLI invocation
type Settings struct {
	ServerName string
	APIURL     string
	WebURL     string
	Storage    Storage
	Timeout    time.Duration
}

// Resolve picks the server and applies environment overrides in this order:
// 1. TSP_API_URL replaces the API url of whichever server is chosen
// 2. serverName flag, if provided
// 3. the selected server of the config file
// 4. the only configured server, or the default local server
func Resolve(cfg *Config, serverName string) (*Settings, error) {
	settings := &Settings{
		ServerName: DefaultServerName,
		APIURL:     DefaultAPIURL,
		WebURL:     DefaultWebURL,
		Storage:    cfg.Storage,
		Timeout:    cfg.Timeout,
	}

	var server *Server
	switch {
	case serverName != "":
		s, err := cfg.GetServerByName(serverName)
		if err != nil {
			return nil, err
		}
		server = s
	default:
		if s, ok := cfg.SelectedServer(); ok {
			server = s
		} else if len(cfg.Servers) == 1 {
			server = &cfg.Servers[0]
		}
	}

	if server != nil {
		settings.ServerName = server.Name
		settings.APIURL = server.URL
		settings.WebURL = server.WebURL
	}

	if url := os.Getenv(EnvAPIURL); url != "" {
		settings.APIURL = url
	}
	if storage := os.Getenv(EnvStorage); storage != "" {
		settings.Storage = Storage(strings.ToLower(storage))
	}

	if settings.Storage == "" {
		settings.Storage = StorageKeyring
	}
	if settings.Storage != StorageKeyring && settings.Storage != StorageFile {
		return nil, fmt.Errorf("invalid storage '%s', must be one of: keyring, file", settings.Storage)
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	settings.APIURL = strings.TrimRight(settings.APIURL, "/")
	return settings, nil
}

// Credentials returns the username and password given through the environment
func Credentials() (username, password string) {
	return os.Getenv(EnvUsername), os.Getenv(EnvPassword)
}
