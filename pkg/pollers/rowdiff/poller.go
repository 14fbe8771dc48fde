// Package rowdiff detects new and changed rows in tabular sources (such as
// spreadsheets) by hashing each row's content and comparing it to the hash
// stored for that row's stable key.
package rowdiff

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/zapline/zapline/pkg/fingerprint"
	"github.com/zapline/zapline/pkg/models"
	"github.com/zapline/zapline/pkg/persistence"
	"github.com/zapline/zapline/pkg/pollers"
	"github.com/zapline/zapline/pkg/retry"
)

const Name = "rowdiff"

// strategy tag used in fingerprint keys.
const strategy = "rowhash"

// fieldSeparator joins normalized cell values before hashing. A control
// character keeps "a,b"+"c" distinct from "a"+"b,c".
const fieldSeparator = "\x1f"

type Classification string

const (
	ClassificationNew       Classification = "new"
	ClassificationChanged   Classification = "changed"
	ClassificationUnchanged Classification = "unchanged"
)

// EmitPolicy selects which classifications produce a run. The per-trigger
// "emit_policy" configuration key overrides the default.
type EmitPolicy string

const (
	EmitNewAndChanged EmitPolicy = "new_and_changed"
	EmitChangedOnly   EmitPolicy = "changed_only"
)

// Row is one record of the fetched sheet. Number is the stable row key.
type Row struct {
	Number int
	Values []string
}

type Sheet struct {
	Headers []string
	Rows    []Row
}

// Source fetches the current sheet state for a trigger.
type Source interface {
	FetchSheet(ctx context.Context, trigger *models.Trigger, accessToken string) (*Sheet, error)
}

type Poller struct {
	logger       *slog.Logger
	store        persistence.Persistence
	fingerprints fingerprint.Store
	emitter      *pollers.RunEmitter
	refresher    pollers.TokenRefresher
	source       Source
	guard        *pollers.Guard
	retryConfig  retry.Config
}

func NewPoller(
	logger *slog.Logger,
	store persistence.Persistence,
	fingerprints fingerprint.Store,
	refresher pollers.TokenRefresher,
	source Source,
) *Poller {
	return &Poller{
		logger:       logger.With("module", "rowdiff_poller"),
		store:        store,
		fingerprints: fingerprints,
		emitter:      pollers.NewRunEmitter(store, logger),
		refresher:    refresher,
		source:       source,
		guard:        pollers.NewGuard(),
		retryConfig:  retry.DefaultConfig(),
	}
}

func (p *Poller) Name() string {
	return Name
}

func (p *Poller) Poll(ctx context.Context) pollers.Result {
	return pollers.Cycle(ctx, p.logger, p.store, p.guard, Name, p.pollTrigger)
}

func (p *Poller) pollTrigger(ctx context.Context, trigger *models.Trigger) (int, error) {
	credential, err := pollers.FreshCredential(ctx, p.store, p.refresher, trigger)
	if err != nil {
		return 0, err
	}

	result := retry.Do(ctx, p.retryConfig, func(ctx context.Context) (any, error) {
		return p.source.FetchSheet(ctx, trigger, pollers.AccessToken(credential))
	})
	if !result.Success {
		return 0, fmt.Errorf("failed to fetch sheet after %d attempts: %w", result.Attempts, result.Err)
	}

	sheet, ok := result.Value.(*Sheet)
	if !ok || sheet == nil {
		return 0, fmt.Errorf("source returned no sheet for trigger %s", trigger.ID)
	}

	policy := emitPolicy(trigger)
	emitted := 0

	for _, row := range sheet.Rows {
		classification, err := p.classifyRow(ctx, trigger, row)
		if err != nil {
			return emitted, err
		}

		if !shouldEmit(policy, classification) {
			continue
		}

		err = p.emitter.Emit(ctx, trigger, rowMetadata(sheet.Headers, row))
		if err != nil {
			return emitted, err
		}

		emitted++
	}

	return emitted, nil
}

// classifyRow compares the row's content hash against the stored one and
// writes the fresh hash back regardless of the outcome.
func (p *Poller) classifyRow(ctx context.Context, trigger *models.Trigger, row Row) (Classification, error) {
	key := fingerprint.Key(strategy, trigger.ID, strconv.Itoa(row.Number))
	hash := HashRow(row.Values)

	stored, err := p.fingerprints.Get(ctx, key)

	classification := ClassificationUnchanged

	switch {
	case err == nil && stored == hash:
		classification = ClassificationUnchanged
	case err == nil:
		classification = ClassificationChanged
	case errors.Is(err, fingerprint.ErrNotFound):
		classification = ClassificationNew
	default:
		return "", fmt.Errorf("failed to read row hash: %w", err)
	}

	err = p.fingerprints.Set(ctx, key, hash, fingerprint.RowHashTTL)
	if err != nil {
		return "", fmt.Errorf("failed to store row hash: %w", err)
	}

	return classification, nil
}

// HashRow normalizes the row's fields (nil handled upstream as empty
// strings, whitespace trimmed) and hashes them with a fixed separator.
func HashRow(values []string) string {
	normalized := make([]string, len(values))
	for i, value := range values {
		normalized[i] = strings.TrimSpace(value)
	}

	sum := sha256.Sum256([]byte(strings.Join(normalized, fieldSeparator)))

	return hex.EncodeToString(sum[:])
}

func rowMetadata(headers []string, row Row) map[string]any {
	rowData := make(map[string]any, len(headers))

	for i, header := range headers {
		value := ""
		if i < len(row.Values) {
			value = row.Values[i]
		}

		rowData[header] = value
	}

	return map[string]any{
		"row_number": row.Number,
		"row_data":   rowData,
	}
}

func emitPolicy(trigger *models.Trigger) EmitPolicy {
	if trigger.ConfigString("emit_policy", "") == string(EmitChangedOnly) {
		return EmitChangedOnly
	}

	return EmitNewAndChanged
}

func shouldEmit(policy EmitPolicy, classification Classification) bool {
	switch classification {
	case ClassificationChanged:
		return true
	case ClassificationNew:
		return policy == EmitNewAndChanged
	default:
		return false
	}
}
