package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings"

    "github.com/joho/godotenv" // optional .env file for local development
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    DBAutoMigrate  bool   // create tables on startup when missing
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing

    EmailDomain    string // institutional domain accepted at register/login
    NotifyOnReject bool   // send trip_rejected notifications to passengers
    RabbitURL      string // broker URL; empty disables cross-instance fan-out
    UploadDir      string // root directory for vehicle documents
    UploadBaseURL  string // public URL prefix the documents are served under
    MaxUploadBytes int64  // per-document size limit
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when
// present; variables already set in the environment win.  Required
// variables are enforced by must() and missing values cause the program
// to exit with a fatal log message.
func Load() Config {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.Printf("config: ignoring .env: %v", err)
    }
    return Config{
        Env:            must("APP_ENV"),                   // environment (dev/test/prod)
        Port:           must("APP_PORT"),                  // port to bind the HTTP server
        DBUser:         must("DB_USER"),                   // database user
        DBPass:         os.Getenv("DB_PASS"),              // database password (empty allowed)
        DBHost:         must("DB_HOST"),                   // database host
        DBPort:         must("DB_PORT"),                   // database port
        DBName:         must("DB_NAME"),                   // database name
        DBAutoMigrate:  envBool("DB_AUTO_MIGRATE", true),  // bootstrap schema
        JWTSecret:      must("JWT_SECRET"),                // secret used for signing JWTs
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
        BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor

        EmailDomain:    strings.ToLower(strings.TrimPrefix(envStr("ALLOWED_EMAIL_DOMAIN", "correounivalle.edu.co"), "@")),
        NotifyOnReject: envBool("NOTIFY_ON_REJECT", false),
        RabbitURL:      rabbitURL(),
        UploadDir:      envStr("UPLOAD_DIR", "uploads"),
        UploadBaseURL:  envStr("UPLOAD_BASE_URL", "/files"),
        MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 5<<20)),
    }
}

// IsProd reports whether the service runs in production mode.
func (c Config) IsProd() bool {
    return c.Env == "prod" || c.Env == "production"
}

// rabbitURL accepts RABBITMQ_URL or AMQP_URL.  RABBITMQ_ENABLED=false turns
// the broker off even when a URL is set.
func rabbitURL() string {
    if !envBool("RABBITMQ_ENABLED", true) {
        return ""
    }
    if v := os.Getenv("RABBITMQ_URL"); v != "" {
        return v
    }
    return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
