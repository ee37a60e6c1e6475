package database

import (
	"fmt"
	"sort"
)

// serverAddress fills in the host and port for networked drivers.
func serverAddress(cfg Config, defaultHost string, defaultPort int) (string, int) {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	return host, port
}

func requireCredentials(driver string, cfg Config) error {
	if cfg.User == "" || cfg.Name == "" {
		return fmt.Errorf("%s configuration requires user and database name", driver)
	}
	return nil
}

// driverOptions merges configured options over the driver defaults and
// renders them as sorted key=value pairs.
func driverOptions(defaults, configured map[string]string) []string {
	merged := make(map[string]string, len(defaults)+len(configured))
	for key, value := range defaults {
		merged[key] = value
	}
	for key, value := range configured {
		merged[key] = value
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+merged[key])
	}
	return pairs
}
