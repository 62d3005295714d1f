package groups

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/mcbarinov/accounts-monitor/core/apperr"
	"github.com/mcbarinov/accounts-monitor/core/chain"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ImportZip creates a group per text file in the archive. The layout is one
// top-level directory per network type, each holding <group name>.txt files
// with one address per line. Every archive group gets all namings and all
// registered coins compatible with its network type attached; groups whose
// name already exists are skipped. The first invalid address aborts the
// whole import, leaving groups created before it in place. The archive file
// is removed after processing regardless of outcome: it is single-use input.
func (s *Service) ImportZip(ctx context.Context, archivePath string) (int, error) {
	unlock := s.locks.Acquire(importLockKey)
	defer unlock()
	defer os.Remove(archivePath)

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, apperr.Validationf("failed to open archive: %s", err)
	}
	defer reader.Close()

	count := 0
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		dir, base := path.Split(file.Name)
		if !strings.HasSuffix(base, ".txt") {
			continue
		}
		networkType, err := chain.ParseNetworkType(strings.Trim(dir, "/"))
		if err != nil {
			continue
		}
		groupName := strings.TrimSuffix(base, ".txt")

		exists, err := s.store.GroupExistsByName(ctx, groupName)
		if err != nil {
			return count, err
		}
		if exists {
			continue
		}

		addresses, err := readZipLines(file)
		if err != nil {
			return count, err
		}
		if invalid := chain.FindInvalidAddress(networkType, addresses); invalid != "" {
			return count, apperr.Validationf("invalid address %s for network type %s", invalid, networkType)
		}

		compatible, err := s.coins.ByNetworks(ctx, chain.NetworksOf(networkType))
		if err != nil {
			return count, err
		}
		coinIDs := make([]string, 0, len(compatible))
		for _, coin := range compatible {
			coinIDs = append(coinIDs, coin.ID)
		}

		group, err := s.CreateGroup(ctx, groupName, networkType, "", chain.NamingsOf(networkType), coinIDs)
		if err != nil {
			return count, err
		}
		if err := s.UpdateAccounts(ctx, group.ID, addresses); err != nil {
			return count, err
		}
		count++
	}

	s.logger.Info("groups imported from archive", zap.String("archive", archivePath), zap.Int("count", count))
	return count, nil
}

func readZipLines(file *zip.File) ([]string, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive entry %s: %w", file.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive entry %s: %w", file.Name, err)
	}
	return parseLines(string(data)), nil
}

// ImportFromStorage downloads every import/*.zip object from the bucket and
// imports it. Each archive is removed from the bucket once processed.
func (s *Service) ImportFromStorage(ctx context.Context) (int, error) {
	count := 0
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: "import/"})
	for object := range objects {
		if object.Err != nil {
			return count, fmt.Errorf("failed to list import objects: %w", object.Err)
		}
		if !strings.HasSuffix(object.Key, ".zip") {
			continue
		}

		imported, err := s.importStorageObject(ctx, object.Key)
		if err != nil {
			return count, err
		}
		count += imported

		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return count, fmt.Errorf("failed to remove import object %s: %w", object.Key, err)
		}
	}
	return count, nil
}

func (s *Service) importStorageObject(ctx context.Context, key string) (int, error) {
	reader, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to get import object %s: %w", key, err)
	}
	defer reader.Close()

	tmp, err := os.CreateTemp("", "groups-import-*.zip")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to download import object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to write temp file: %w", err)
	}

	// ImportZip removes the temp file when done.
	return s.ImportZip(ctx, tmp.Name())
}

// BackupToStorage exports every group as TOML and uploads the document to
// the bucket under backup/.
func (s *Service) BackupToStorage(ctx context.Context) (string, error) {
	data, err := s.ExportTOML(ctx)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("backup/groups-%s.toml", time.Now().UTC().Format("20060102-150405"))
	reader := strings.NewReader(data)
	if _, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType: "application/toml",
	}); err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}

	s.logger.Info("groups backup uploaded", zap.String("object", key))
	return key, nil
}
