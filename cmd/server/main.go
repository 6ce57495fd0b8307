package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/himanishpuri/CardioDNA/internal/storage"
	"github.com/himanishpuri/CardioDNA/internal/stream"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna"
	"github.com/himanishpuri/CardioDNA/pkg/logger"
)

var (
	port           int
	dbPath         string
	natsURL        string
	natsSubject    string
	detectorName   string
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("CARDIO_DB_PATH", storage.DefaultDBFile), "Path to SQLite database")
	flag.StringVar(&natsURL, "nats", getEnvOrDefault("CARDIO_NATS_URL", ""), "NATS server URL for run announcements (empty disables)")
	flag.StringVar(&natsSubject, "subject", getEnvOrDefault("CARDIO_NATS_SUBJECT", stream.DefaultSubject), "NATS subject for run announcements")
	flag.StringVar(&detectorName, "detector", "", "Detector used for every analysis (default: pantompkins)")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	flag.Parse()

	// Parse allowed origins
	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	opts := []cardiodna.Option{cardiodna.WithDBPath(dbPath)}
	if detectorName != "" {
		opts = append(opts, cardiodna.WithDetector(detectorName, nil))
	}
	if natsURL != "" {
		pub, err := cardiodna.NewNATSPublisher(natsURL, natsSubject)
		if err != nil {
			logger.GetLogger().Warnf("Run announcements disabled: %v", err)
		} else {
			opts = append(opts, cardiodna.WithPublisher(pub))
		}
	}

	service, err := cardiodna.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		NATSURL:        natsURL,
		AllowedOrigins: origins,
	}

	server := NewServer(service, config)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
