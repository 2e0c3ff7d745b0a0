package qdrant

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
)

var QdrantClient *qdrant.Client

// InitQdrantClient connects to Qdrant over gRPC. rawURL may be a bare host
// or a URL; TLS is used unless the scheme is plain http.
func InitQdrantClient(rawURL, apiKey string) error {
	if rawURL == "" {
		return fmt.Errorf("QDRANT_URL environment variable not set")
	}
	host, port, useTLS := parseEndpoint(rawURL)

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		logger.Get().Error("failed to connect to Qdrant",
			zap.String("host", host),
			zap.Error(err))
		return fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	QdrantClient = client
	logger.Get().Info("successfully connected to Qdrant",
		zap.String("host", host),
		zap.Int("port", port))
	return nil
}

func CloseQdrantClient() {
	if QdrantClient != nil {
		if err := QdrantClient.Close(); err != nil {
			logger.Get().Warn("failed to close Qdrant client", zap.Error(err))
		}
	}
	QdrantClient = nil
	logger.Get().Info("Qdrant client cleaned up")
}

// parseEndpoint defaults to the secure gRPC port 6334.
func parseEndpoint(raw string) (string, int, bool) {
	port, useTLS := 6334, true
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return strings.TrimPrefix(raw, "https://"), port, useTLS
	}
	if u.Scheme == "http" {
		useTLS = false
	}
	if p, err := strconv.Atoi(u.Port()); err == nil {
		port = p
	}
	return u.Hostname(), port, useTLS
}
