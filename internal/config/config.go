package config

import (
	"os"
	"strings"
)

type Mode string

const (
	ModeLocal  Mode = "local"
	ModeOnline Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	// InstrumentDir holds category subfolders of instrument definition
	// JSONs; BibliographyDir holds normative-study JSONs matched to an
	// instrument by label.
	InstrumentDir   string
	BibliographyDir string

	AuthSecret    string
	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOriginsOnline []string
	CORSOriginsLocal  []string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeLocal
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		Mode:            mode,
		HTTPAddr:        addr,
		DBDriver:        envOr("DB_DRIVER", "sqlite"),
		DBDSN:           envOr("DB_DSN", ""),
		InstrumentDir:   envOr("INSTRUMENT_DIR", "./scales"),
		BibliographyDir: envOr("BIBLIOGRAPHY_DIR", "./bibliography"),
		AuthSecret:      envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:       envOr("ADMIN_USER", "admin"),
		// bcrypt of "admin"; override in any real deployment.
		AdminPassHash:     envOr("ADMIN_PASS_HASH", "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
		CORSOriginsOnline: csvOr("CORS_ORIGINS_ONLINE", "https://scores.example.com"),
		CORSOriginsLocal:  csvOr("CORS_ORIGINS_LOCAL", "http://localhost:3000,http://localhost:5173"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
