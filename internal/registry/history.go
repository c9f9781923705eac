package registry

import (
	"context"

	"github.com/starford/valet/internal/history"
)

// Organized groups every registro by year, month and day of entrada.
func (s *Service) Organized(ctx context.Context) (history.Tree, history.Summary, error) {
	entries, err := s.db.LoadRegistros(ctx)
	if err != nil {
		return nil, history.Summary{}, err
	}
	tree, sum := history.Organize(entries, s.loc)
	return tree, sum, nil
}

// Summary returns the per-year counts, or nil when there are no registros.
func (s *Service) Summary(ctx context.Context) (*history.Summary, error) {
	entries, err := s.db.LoadRegistros(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	_, sum := history.Organize(entries, s.loc)
	return &sum, nil
}

// History renders the collapsible history tree with the given open nodes.
func (s *Service) History(ctx context.Context, expanded history.Expanded) (history.View, error) {
	tree, sum, err := s.Organized(ctx)
	if err != nil {
		return history.View{}, err
	}
	return history.Render(tree, sum, expanded), nil
}
