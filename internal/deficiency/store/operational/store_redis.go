package operational

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"propcheck/internal/deficiency/models"
	"propcheck/pkg/platform/sentinel"
)

// RedisStore keeps deficient items under hierarchical keys: one JSON value per
// item at its active or archive path, plus member sets per property and a
// claim key per (inspection, item) that guards against duplicate actives.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func activeKey(propertyID, id string) string {
	return "deficiency:" + propertyID + ":" + id
}

func archiveKey(propertyID, id string) string {
	return "archive:deficiency:" + propertyID + ":" + id
}

func membersKey(propertyID string) string {
	return "deficiency:members:" + propertyID
}

func archiveMembersKey(propertyID string) string {
	return "archive:deficiency:members:" + propertyID
}

func claimKey(inspectionID, itemID string) string {
	return "deficiency:item:" + inspectionID + ":" + itemID
}

// Create writes di as a new active record and claims its (inspection, item)
// key in the same transaction. A claim left behind by a record that is no
// longer active is taken over; the transaction is guarded by WATCH on the
// claim, so concurrent takeovers resolve to a single winner.
func (s *RedisStore) Create(ctx context.Context, di *models.DeficientItem) error {
	payload, err := json.Marshal(di)
	if err != nil {
		return fmt.Errorf("marshal deficient item: %w", err)
	}
	claim := claimKey(di.Inspection, di.Item)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		holder, err := tx.Get(ctx, claim).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if holder != "" && holder != di.ID {
			live, err := tx.Exists(ctx, activeKey(di.Property, holder)).Result()
			if err != nil {
				return err
			}
			if live > 0 {
				return fmt.Errorf("deficient item %s already holds %s/%s: %w", holder, di.Inspection, di.Item, sentinel.ErrConflict)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, claim, di.ID, 0)
			pipe.Set(ctx, activeKey(di.Property, di.ID), payload, 0)
			pipe.SAdd(ctx, membersKey(di.Property), di.ID)
			return nil
		})
		return err
	}, claim)
	return watchErr("create deficient item", err)
}

// ClaimHolder returns the id of the record holding the (inspection, item)
// claim, or sentinel.ErrNotFound.
func (s *RedisStore) ClaimHolder(ctx context.Context, inspectionID, itemID string) (string, error) {
	id, err := s.client.Get(ctx, claimKey(inspectionID, itemID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read deficient item claim: %w", err)
	}
	return id, nil
}

// Update overwrites an active record. Archived or missing records are left
// untouched and reported as sentinel.ErrNotFound.
func (s *RedisStore) Update(ctx context.Context, di *models.DeficientItem) error {
	payload, err := json.Marshal(di)
	if err != nil {
		return fmt.Errorf("marshal deficient item: %w", err)
	}
	key := activeKey(di.Property, di.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return sentinel.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)
	return watchErr("update deficient item", err)
}

func (s *RedisStore) Get(ctx context.Context, ref models.Ref) (*models.DeficientItem, models.Location, error) {
	for _, loc := range []models.Location{models.LocationActive, models.LocationArchived} {
		raw, err := s.client.Get(ctx, locationKey(ref, loc)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, models.LocationNone, fmt.Errorf("get deficient item: %w", err)
		}
		di, err := decode(raw)
		if err != nil {
			return nil, models.LocationNone, err
		}
		return di, loc, nil
	}
	return nil, models.LocationNone, sentinel.ErrNotFound
}

// Move relocates di between the active and archive paths. It fails with
// sentinel.ErrInvalidState when di is no longer at the source path and with
// sentinel.ErrConflict when restoring would create a second active record for
// the same inspection item.
func (s *RedisStore) Move(ctx context.Context, di *models.DeficientItem, archive bool) error {
	payload, err := json.Marshal(di)
	if err != nil {
		return fmt.Errorf("marshal deficient item: %w", err)
	}
	from, to := activeKey(di.Property, di.ID), archiveKey(di.Property, di.ID)
	fromMembers, toMembers := membersKey(di.Property), archiveMembersKey(di.Property)
	if !archive {
		from, to = to, from
		fromMembers, toMembers = toMembers, fromMembers
	}
	claim := claimKey(di.Inspection, di.Item)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, from).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return sentinel.ErrInvalidState
		}
		holder, err := tx.Get(ctx, claim).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if !archive && holder != "" && holder != di.ID {
			live, err := tx.Exists(ctx, activeKey(di.Property, holder)).Result()
			if err != nil {
				return err
			}
			if live > 0 {
				return sentinel.ErrConflict
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, from)
			pipe.Set(ctx, to, payload, 0)
			pipe.SRem(ctx, fromMembers, di.ID)
			pipe.SAdd(ctx, toMembers, di.ID)
			switch {
			case archive && holder == di.ID:
				pipe.Del(ctx, claim)
			case !archive:
				pipe.Set(ctx, claim, di.ID, 0)
			}
			return nil
		})
		return err
	}, from, claim)
	return watchErr("move deficient item", err)
}

// FindAllByProperty returns the active records of a property.
func (s *RedisStore) FindAllByProperty(ctx context.Context, propertyID string) ([]*models.DeficientItem, error) {
	ids, err := s.client.SMembers(ctx, membersKey(propertyID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list deficient items: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = activeKey(propertyID, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load deficient items: %w", err)
	}
	items := make([]*models.DeficientItem, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// member set entry without a record; skipped until the next move repairs it
			continue
		}
		di, err := decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		items = append(items, di)
	}
	sortByID(items)
	return items, nil
}

func locationKey(ref models.Ref, loc models.Location) string {
	if loc == models.LocationArchived {
		return archiveKey(ref.PropertyID, ref.ID)
	}
	return activeKey(ref.PropertyID, ref.ID)
}

func decode(raw []byte) (*models.DeficientItem, error) {
	var di models.DeficientItem
	if err := json.Unmarshal(raw, &di); err != nil {
		return nil, fmt.Errorf("decode deficient item: %w", err)
	}
	return &di, nil
}

func watchErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%s: concurrent modification: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
