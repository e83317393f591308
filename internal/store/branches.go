package store

import (
	"database/sql"
	"fmt"

	stackderrors "stackd.dev/stackd/internal/errors"
)

// Branch is one tracked branch record. ParentID is nil for roots.
// PRNumber and PRState are a cached pair: both set or both nil.
type Branch struct {
	ID        int64
	Name      string
	ParentID  *int64
	SyncedSHA *string
	PRNumber  *int64
	PRState   *string
}

// ParentUpdate is one entry of a batch parent change. A nil Parent
// clears the link. Names that do not exist yet are created as part of
// the batch.
type ParentUpdate struct {
	Name   string
	Parent *string
}

const branchColumns = "id, name, parent_id, synced_sha, pr_number, pr_state"

func scanBranch(row interface{ Scan(...any) error }) (*Branch, error) {
	var b Branch
	if err := row.Scan(&b.ID, &b.Name, &b.ParentID, &b.SyncedSHA, &b.PRNumber, &b.PRState); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpsertBranch creates a branch record if it does not exist and returns its id.
func (s *Store) UpsertBranch(name string) (int64, error) {
	_, err := s.conn.Exec(`INSERT INTO branches (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return 0, fmt.Errorf("upserting branch %s: %w", name, err)
	}
	var id int64
	if err := s.conn.QueryRow(`SELECT id FROM branches WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("reading branch id for %s: %w", name, err)
	}
	return id, nil
}

// GetBranch returns the record for a branch name.
func (s *Store) GetBranch(name string) (*Branch, error) {
	row := s.conn.QueryRow(`SELECT `+branchColumns+` FROM branches WHERE name = ?`, name)
	b, err := scanBranch(row)
	if err == sql.ErrNoRows {
		return nil, stackderrors.NewBranchNotFoundError(name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying branch %s: %w", name, err)
	}
	return b, nil
}

// ListBranches returns all branch records ordered by name.
func (s *Store) ListBranches() ([]*Branch, error) {
	rows, err := s.conn.Query(`SELECT ` + branchColumns + ` FROM branches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	defer rows.Close()

	var branches []*Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning branch: %w", err)
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

// ParentMap returns the id -> parent-id projection of the whole forest.
func (s *Store) ParentMap() (map[int64]*int64, error) {
	rows, err := s.conn.Query(`SELECT id, parent_id FROM branches`)
	if err != nil {
		return nil, fmt.Errorf("loading parent map: %w", err)
	}
	defer rows.Close()

	parents := make(map[int64]*int64)
	for rows.Next() {
		var id int64
		var parent *int64
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, fmt.Errorf("scanning parent row: %w", err)
		}
		parents[id] = parent
	}
	return parents, rows.Err()
}

// chainHasCycle walks up from child through the projected parent map and
// reports whether child is revisited before the chain reaches a root.
// Iterative with an explicit visited set so corrupt data cannot recurse
// unboundedly.
func chainHasCycle(parents map[int64]*int64, child int64) bool {
	visited := map[int64]bool{child: true}
	cur := parents[child]
	for cur != nil {
		if visited[*cur] {
			return true
		}
		visited[*cur] = true
		cur = parents[*cur]
	}
	return false
}

// SetParent updates one branch's parent link. A nil parent makes the
// branch a root. Fails with a cycle error if the new link would make the
// branch its own ancestor, and refuses to give the trunk a parent.
func (s *Store) SetParent(child string, parent *string) error {
	childBranch, err := s.GetBranch(child)
	if err != nil {
		return err
	}

	trunk, err := s.Trunk()
	if err != nil {
		return err
	}
	if parent != nil && child == trunk {
		return fmt.Errorf("%w: trunk branch %s cannot have a parent", stackderrors.ErrInvalidOperation, child)
	}

	var parentID *int64
	if parent != nil {
		parentBranch, err := s.GetBranch(*parent)
		if err != nil {
			return err
		}
		parentID = &parentBranch.ID

		parents, err := s.ParentMap()
		if err != nil {
			return err
		}
		parents[childBranch.ID] = parentID
		if chainHasCycle(parents, childBranch.ID) {
			return stackderrors.NewCycleError(child, *parent)
		}
	}

	if _, err := s.conn.Exec(`UPDATE branches SET parent_id = ? WHERE id = ?`, parentID, childBranch.ID); err != nil {
		return fmt.Errorf("updating parent of %s: %w", child, err)
	}
	return nil
}

// SetParentsBatch applies many parent changes atomically. Updates may name
// branches that do not exist yet; those are projected with temporary
// negative ids, every affected chain is validated against the projection,
// and only on success are all rows committed in one transaction.
func (s *Store) SetParentsBatch(updates []ParentUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	existing, err := s.ListBranches()
	if err != nil {
		return err
	}
	trunk, err := s.Trunk()
	if err != nil {
		return err
	}

	idsByName := make(map[string]int64, len(existing))
	parents := make(map[int64]*int64, len(existing))
	for _, b := range existing {
		idsByName[b.Name] = b.ID
		parents[b.ID] = b.ParentID
	}

	// Project not-yet-existing names with temporary ids. Negative ids
	// cannot collide with AUTOINCREMENT rowids.
	nextTemp := int64(-1)
	idFor := func(name string) int64 {
		if id, ok := idsByName[name]; ok {
			return id
		}
		id := nextTemp
		nextTemp--
		idsByName[name] = id
		parents[id] = nil
		return id
	}

	for _, u := range updates {
		if u.Parent != nil && u.Name == trunk {
			return fmt.Errorf("%w: trunk branch %s cannot have a parent", stackderrors.ErrInvalidOperation, u.Name)
		}
		childID := idFor(u.Name)
		if u.Parent == nil {
			parents[childID] = nil
			continue
		}
		parentID := idFor(*u.Parent)
		parents[childID] = &parentID
	}

	// Validate every id's chain against the projection before touching
	// the database.
	for _, u := range updates {
		childID := idsByName[u.Name]
		if chainHasCycle(parents, childID) {
			parent := ""
			if u.Parent != nil {
				parent = *u.Parent
			}
			return stackderrors.NewCycleError(u.Name, parent)
		}
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning batch transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Materialize projected branches first so parent references resolve.
	for name, id := range idsByName {
		if id >= 0 {
			continue
		}
		res, err := tx.Exec(`INSERT INTO branches (name) VALUES (?)`, name)
		if err != nil {
			return fmt.Errorf("%w: inserting branch %s: %v", stackderrors.ErrConflict, name, err)
		}
		realID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading inserted id for %s: %w", name, err)
		}
		idsByName[name] = realID
	}

	for _, u := range updates {
		childID := idsByName[u.Name]
		var parentID *int64
		if u.Parent != nil {
			id := idsByName[*u.Parent]
			parentID = &id
		}
		if _, err := tx.Exec(`UPDATE branches SET parent_id = ? WHERE id = ?`, parentID, childID); err != nil {
			return fmt.Errorf("updating parent of %s: %w", u.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// SpliceOut removes one branch and re-parents its direct children to the
// removed branch's former parent.
func (s *Store) SpliceOut(name string) error {
	b, err := s.GetBranch(name)
	if err != nil {
		return err
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning splice transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE branches SET parent_id = ? WHERE parent_id = ?`, b.ParentID, b.ID); err != nil {
		return fmt.Errorf("re-parenting children of %s: %w", name, err)
	}
	if _, err := tx.Exec(`DELETE FROM branches WHERE id = ?`, b.ID); err != nil {
		return fmt.Errorf("deleting branch %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing splice: %w", err)
	}
	return nil
}

// DeleteBranch detaches all children to null and removes the record.
// Used when the underlying git branch no longer exists; normal untrack
// flows use SpliceOut instead.
func (s *Store) DeleteBranch(name string) error {
	b, err := s.GetBranch(name)
	if err != nil {
		return err
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE branches SET parent_id = NULL WHERE parent_id = ?`, b.ID); err != nil {
		return fmt.Errorf("detaching children of %s: %w", name, err)
	}
	if _, err := tx.Exec(`DELETE FROM branches WHERE id = ?`, b.ID); err != nil {
		return fmt.Errorf("deleting branch %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// SetSyncedSHA records the last-synced head identifier for a branch.
func (s *Store) SetSyncedSHA(name, sha string) error {
	res, err := s.conn.Exec(`UPDATE branches SET synced_sha = ? WHERE name = ?`, sha, name)
	if err != nil {
		return fmt.Errorf("updating synced sha of %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return stackderrors.NewBranchNotFoundError(name)
	}
	return nil
}

// SetPRCache updates the cached PR pair for a branch. Number and state
// move together: pass both to cache, or neither to clear.
func (s *Store) SetPRCache(name string, number *int64, state *string) error {
	if (number == nil) != (state == nil) {
		return fmt.Errorf("%w: PR number and state must be set or cleared together", stackderrors.ErrInvalidOperation)
	}
	res, err := s.conn.Exec(`UPDATE branches SET pr_number = ?, pr_state = ? WHERE name = ?`, number, state, name)
	if err != nil {
		return fmt.Errorf("updating PR cache of %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return stackderrors.NewBranchNotFoundError(name)
	}
	return nil
}

// Children returns the direct children of a branch id, ordered by name.
func (s *Store) Children(parentID int64) ([]*Branch, error) {
	rows, err := s.conn.Query(`SELECT `+branchColumns+` FROM branches WHERE parent_id = ? ORDER BY name`, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing children: %w", err)
	}
	defer rows.Close()

	var branches []*Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning child: %w", err)
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}
