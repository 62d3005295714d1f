package groups

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mcbarinov/accounts-monitor/core/apperr"
	"github.com/mcbarinov/accounts-monitor/core/chain"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// importLockKey serializes every bulk import path. Imports create groups
// that do not exist yet, so a per-group lock cannot cover them; one shared
// key does.
const importLockKey = "groups:import"

// exportGroup is the wire form of one group in the export document. The
// coins, namings, and accounts lists travel as newline-joined text blocks.
type exportGroup struct {
	Name        string `toml:"name"`
	NetworkType string `toml:"network_type"`
	Notes       string `toml:"notes"`
	Coins       string `toml:"coins,multiline"`
	Namings     string `toml:"namings,multiline"`
	Accounts    string `toml:"accounts,multiline"`
}

type exportDocument struct {
	Groups []exportGroup `toml:"groups"`
}

// ExportTOML serializes every group as a TOML document.
func (s *Service) ExportTOML(ctx context.Context) (string, error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return "", err
	}

	doc := exportDocument{Groups: make([]exportGroup, 0, len(groups))}
	for _, group := range groups {
		namings := make([]string, 0, len(group.Namings))
		for _, naming := range group.Namings {
			namings = append(namings, string(naming))
		}
		doc.Groups = append(doc.Groups, exportGroup{
			Name:        group.Name,
			NetworkType: string(group.NetworkType),
			Notes:       group.Notes,
			Coins:       strings.Join(group.Coins, "\n"),
			Namings:     strings.Join(namings, "\n"),
			Accounts:    strings.Join(group.Accounts, "\n"),
		})
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode groups: %w", err)
	}
	return buf.String(), nil
}

// ImportTOML creates every group from the document that does not exist yet
// (matched by name; existing groups are skipped, never updated in place) and
// returns the number of groups created. A record referencing unknown coins
// aborts the import with an error naming all of them; groups created before
// the bad record stay.
func (s *Service) ImportTOML(ctx context.Context, data string) (int, error) {
	unlock := s.locks.Acquire(importLockKey)
	defer unlock()

	var doc exportDocument
	if err := toml.Unmarshal([]byte(data), &doc); err != nil {
		return 0, apperr.Validationf("failed to parse import document: %s", err)
	}

	count := 0
	for _, record := range doc.Groups {
		exists, err := s.store.GroupExistsByName(ctx, record.Name)
		if err != nil {
			return count, err
		}
		if exists {
			continue
		}

		networkType, err := chain.ParseNetworkType(record.NetworkType)
		if err != nil {
			return count, apperr.Validationf("group %s: %s", record.Name, err)
		}

		coinIDs := parseLines(record.Coins)
		unknown, err := s.coins.Unknown(ctx, coinIDs)
		if err != nil {
			return count, err
		}
		if len(unknown) > 0 {
			return count, apperr.Validationf("unknown coins: %s", strings.Join(unknown, ", "))
		}

		var namings []chain.Naming
		for _, line := range parseLines(record.Namings) {
			naming, err := chain.ParseNaming(line)
			if err != nil {
				return count, apperr.Validationf("group %s: %s", record.Name, err)
			}
			namings = append(namings, naming)
		}

		group, err := s.CreateGroup(ctx, record.Name, networkType, record.Notes, namings, coinIDs)
		if err != nil {
			return count, err
		}
		if err := s.UpdateAccounts(ctx, group.ID, parseLines(record.Accounts)); err != nil {
			return count, err
		}
		count++
	}

	s.logger.Info("groups imported", zap.Int("count", count))
	return count, nil
}

// parseLines splits a newline-joined text block into trimmed non-empty
// lines.
func parseLines(block string) []string {
	var lines []string
	for line := range strings.Lines(block) {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
