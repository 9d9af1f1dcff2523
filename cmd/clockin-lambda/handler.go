package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	attendance "axiapac.com/backoffice/attendance/core"
	"axiapac.com/backoffice/core"
	"github.com/aws/aws-lambda-go/events"
	"gorm.io/gorm"
)

type objectReader interface {
	ReadFile(ctx context.Context, key string, outStream io.Writer) error
}

type handler struct {
	dm       *core.DatabaseManager
	service  *attendance.Service
	open     func(bucket string) objectReader
	prefix   string
	location *time.Location
	logger   *slog.Logger
}

// Handle imports every CSV object of the event. A failing object does not stop the others;
// the joined error makes Lambda retry the event, which is safe because imports skip
// punches already stored.
func (h *handler) Handle(ctx context.Context, event events.S3Event) error {
	var errs []error
	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid object key %q: %w", record.S3.Object.Key, err))
			continue
		}

		if err := h.importObject(ctx, bucket, key); err != nil {
			h.logger.Error("clock import failed", "bucket", bucket, "key", key, "error", err)
			errs = append(errs, fmt.Errorf("%s/%s: %w", bucket, key, err))
		}
	}
	return errors.Join(errs...)
}

func (h *handler) importObject(ctx context.Context, bucket, key string) error {
	if !strings.EqualFold(path.Ext(key), ".csv") {
		h.logger.Info("skipping object that is not a csv", "bucket", bucket, "key", key)
		return nil
	}

	var buf bytes.Buffer
	if err := h.open(bucket).ReadFile(ctx, key, &buf); err != nil {
		return err
	}

	punches, err := attendance.ParsePunchCSV(&buf, h.location)
	if err != nil {
		return err
	}

	tenant := tenantFromKey(h.prefix, key)
	var result *attendance.ImportResult
	err = h.dm.Exec(ctx, tenant, func(db *gorm.DB) error {
		var err error
		result, err = h.service.Import(ctx, db, punches)
		return err
	})
	if err != nil {
		return err
	}

	h.logger.Info("clock file imported",
		"key", key,
		"tenant", tenant,
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"skipped", len(result.Skipped))
	return nil
}

// tenantFromKey reads the tenant folder of <prefix>/<tenant>/<name>. Keys directly under
// the prefix belong to the default database.
func tenantFromKey(prefix, key string) string {
	rest := key
	if p := strings.Trim(prefix, "/"); p != "" {
		rest = strings.TrimPrefix(key, p+"/")
	}
	dir := path.Dir(rest)
	if dir == "." || dir == "/" {
		return ""
	}
	return strings.SplitN(dir, "/", 2)[0]
}
