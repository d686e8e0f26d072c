package organizations

import "context"

// Store persists organization records. Update applies every supplied field in
// one atomic write per record.
type Store interface {
	Get(ctx context.Context, id string) (Organization, error)
	List(ctx context.Context) ([]Organization, error)
	Create(ctx context.Context, fields NewOrganization) (Organization, error)
	Update(ctx context.Context, id string, update Update) (Organization, error)
}
