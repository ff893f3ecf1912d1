package gcs

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// New builds a storage client. An emulator host routes traffic to a local
// fake server without credentials.
func New(ctx context.Context, credentialsFile, emulatorHost string) (*storage.Client, error) {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(emulatorHost) != "":
		if err := os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimSpace(emulatorHost)); err != nil {
			return nil, fmt.Errorf("set storage emulator host failed: %w", err)
		}
		opts = append(opts, option.WithoutAuthentication())
	case strings.TrimSpace(credentialsFile) != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client failed: %w", err)
	}
	return client, nil
}
