package identity

import (
	"context"

	"compliance-backend/internal/shared/telemetry"
)

// DevIdentity is the caller TestProvider returns for every request.
var DevIdentity = Identity{
	SubjectID:      "dev-user",
	Email:          "dev@example.com",
	OrganizationID: "org-1",
	Role:           RoleAdmin,
}

// TestProvider accepts any token and returns a fixed identity. It must be
// selected explicitly and is refused in production by config validation.
type TestProvider struct {
	ident Identity
}

// NewTestProvider logs loudly that verification is disabled.
func NewTestProvider(ident Identity) *TestProvider {
	if ident.SubjectID == "" {
		ident = DevIdentity
	}
	ident.Synthetic = true
	telemetry.Warn("identity.test_provider_active", map[string]any{
		"subject_id":      ident.SubjectID,
		"organization_id": ident.OrganizationID,
		"role":            ident.Role,
	})
	return &TestProvider{ident: ident}
}

func (p *TestProvider) Verify(ctx context.Context, _ string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	return p.ident, nil
}
