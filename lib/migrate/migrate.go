package migrate

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dDocs/lib/keymap"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("migrate")

// Target gives the migration access to documents by physical path.
// Writes must not create backups.
type Target interface {
	// ReadPath returns the document at path. A missing document is reported with exists=false.
	ReadPath(ctx context.Context, path string) (doc remote.Document, exists bool, err error)
	// WritePath stores doc at path
	WritePath(ctx context.Context, path string, doc remote.Document) error
}

// Rule moves one field of a legacy document (or the whole document if Field is empty) to a new path
type Rule struct {
	Legacy string // file name below data/
	Field  string
	Target string // physical path
}

// Rules is the mapping from the flat legacy layout to the namespaced layout, applied in order
var Rules = []Rule{
	{Legacy: "giveaways.json", Target: "data/features/giveaways.json"},
	{Legacy: "users.json", Field: "balances", Target: "data/economy/user_balances.json"},
	{Legacy: "users.json", Field: "levels", Target: "data/leveling/user_levels.json"},
	{Legacy: "users.json", Field: "daily", Target: "data/economy/daily_claims.json"},
	{Legacy: "servers.json", Field: "antilink", Target: "data/features/antilink_configs.json"},
	{Legacy: "servers.json", Field: "welcome", Target: "data/features/welcome_configs.json"},
	{Legacy: "servers.json", Field: "modlog", Target: "data/moderation/server_configs.json"},
	{Legacy: "economy.json", Field: "balances", Target: "data/economy/user_balances.json"},
	{Legacy: "economy.json", Field: "levels", Target: "data/leveling/user_levels.json"},
	{Legacy: "economy.json", Field: "daily", Target: "data/economy/daily_claims.json"},
	{Legacy: "levels.json", Target: "data/leveling/user_levels.json"},
	{Legacy: "warnings.json", Target: "data/moderation/user_warnings.json"},
}

// Report summarises a migration run
type Report struct {
	LegacyFound []string // legacy documents that exist
	Applied     []Rule   // rules that wrote a document
	Skipped     []Rule   // rules whose field was missing or whose target already had data
}

func (r Report) String() string {
	return fmt.Sprintf("%d legacy documents, %d moved, %d skipped", len(r.LegacyFound), len(r.Applied), len(r.Skipped))
}

// legacyPath returns the physical path of a legacy document
func legacyPath(name string) string {
	return keymap.DataRoot + "/" + name
}

// Run applies all rules. A rule only writes when its source is present and not null and its
// target is absent or empty, so running it again changes nothing. Legacy documents are kept.
// Failed rules are logged, the returned error joins all failures.
func Run(ctx context.Context, target Target) (Report, error) {
	var report Report
	var errs []error

	type legacyDoc struct {
		fields map[string]remote.Document
		whole  remote.Document
		ok     bool
	}
	sources := make(map[string]legacyDoc)

	load := func(name string) legacyDoc {
		if src, ok := sources[name]; ok {
			return src
		}
		var src legacyDoc
		doc, exists, err := target.ReadPath(ctx, legacyPath(name))
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("read %s: %w", name, err))
		case exists:
			src = legacyDoc{whole: doc, ok: true}
			report.LegacyFound = append(report.LegacyFound, name)
			if fields, err := doc.Fields(); err == nil {
				src.fields = fields
			}
		}
		sources[name] = src
		return src
	}

	for _, rule := range Rules {
		src := load(rule.Legacy)
		if !src.ok {
			continue
		}

		value := src.whole
		if rule.Field != "" {
			value = src.fields[rule.Field]
		}
		if len(value) == 0 || string(value.Compact()) == "null" {
			report.Skipped = append(report.Skipped, rule)
			continue
		}

		current, exists, err := target.ReadPath(ctx, rule.Target)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", rule.Target, err))
			continue
		}
		if exists && !current.IsEmpty() {
			Logger.Debugf("Not migrating %s to %s, target has data", rule.Legacy, rule.Target)
			report.Skipped = append(report.Skipped, rule)
			continue
		}

		if err := target.WritePath(ctx, rule.Target, value); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", rule.Target, err))
			continue
		}
		Logger.Infof("Migrated %s %s to %s", rule.Legacy, rule.Field, rule.Target)
		report.Applied = append(report.Applied, rule)
	}

	err := errors.Join(errs...)
	if err != nil {
		Logger.Warningf("Migration incomplete: %v", err)
	}
	return report, err
}
