// Package identity reads and updates accounts held by the Supabase auth
// service through its admin API.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/illegalcall/quickai/internal/models"
)

const (
	planKey  = "plan"
	usageKey = "free_usage"
)

// Directory is the account lookup the API and quota gate depend on.
type Directory interface {
	GetUser(ctx context.Context, userID string) (models.Account, error)
	SetUsage(ctx context.Context, userID string, usage int) error
}

type SupabaseDirectory struct {
	client gotrue.Client
	logger *slog.Logger
}

// projectRef turns "https://abc.supabase.co" into "abc".
func projectRef(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	return strings.Split(url, ".")[0]
}

// NewSupabaseDirectory builds a directory authenticated with the service key.
// Admin endpoints reject the anon key.
func NewSupabaseDirectory(supabaseURL, serviceKey string, logger *slog.Logger) (*SupabaseDirectory, error) {
	if supabaseURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY must be set")
	}
	client := gotrue.New(projectRef(supabaseURL), serviceKey).WithToken(serviceKey)
	return newDirectory(client, logger), nil
}

// NewDirectoryWithURL points the client at a self-hosted GoTrue instance.
func NewDirectoryWithURL(gotrueURL, serviceKey string, logger *slog.Logger) *SupabaseDirectory {
	client := gotrue.New("", serviceKey).WithCustomGoTrueURL(gotrueURL).WithToken(serviceKey)
	return newDirectory(client, logger)
}

func newDirectory(client gotrue.Client, logger *slog.Logger) *SupabaseDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &SupabaseDirectory{client: client, logger: logger.With("component", "identity")}
}

func (d *SupabaseDirectory) GetUser(ctx context.Context, userID string) (models.Account, error) {
	if err := ctx.Err(); err != nil {
		return models.Account{}, err
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return models.Account{}, fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	resp, err := d.client.AdminGetUser(types.AdminGetUserRequest{UserID: id})
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to fetch user: %w", err)
	}

	return accountFromMetadata(userID, resp.AppMetadata), nil
}

func (d *SupabaseDirectory) SetUsage(ctx context.Context, userID string, usage int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	// app_metadata is merged server side, so plan is left untouched.
	_, err = d.client.AdminUpdateUser(types.AdminUpdateUserRequest{
		UserID:      id,
		AppMetadata: map[string]interface{}{usageKey: usage},
	})
	if err != nil {
		return fmt.Errorf("failed to update usage: %w", err)
	}
	d.logger.Debug("Usage mirrored", "user_id", userID, "usage", usage)
	return nil
}

// accountFromMetadata applies the defaults: no plan means free, no usage
// means zero.
func accountFromMetadata(userID string, meta map[string]interface{}) models.Account {
	acct := models.Account{ID: userID, Plan: models.PlanFree}
	if plan, ok := meta[planKey].(string); ok && models.Plan(plan) == models.PlanPremium {
		acct.Plan = models.PlanPremium
	}
	acct.Usage = usageValue(meta[usageKey])
	return acct
}

func usageValue(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}
