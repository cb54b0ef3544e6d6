package bolt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hornwind/ipset/internal/models"
	_ "github.com/hornwind/ipset/pkg/log"
	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

// Bucket layout: one bucket per managed set, keyed by set name.
// Keys inside a bucket: type, timestamp, entries, rule, applied.
type Storage struct {
	storage *bolt.DB
}

var _ models.Repository = (*Storage)(nil)

func NewStorage(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open state db %s: %v", path, err)
	}
	return &Storage{storage: db}, nil
}

func (s *Storage) Close() {
	s.storage.Close()
}

func putJSON(b *bolt.Bucket, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not marshal %s json: %v", key, err)
	}
	if err := b.Put([]byte(key), data); err != nil {
		return fmt.Errorf("could not put %s: %v", key, err)
	}
	return nil
}

func (s *Storage) CreateOrUpdate(state *models.SetState) error {
	return s.storage.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(state.Name))
		if err != nil {
			return fmt.Errorf("could not create %s bucket: %v", state.Name, err)
		}

		if err := putJSON(root, "applied", state.Applied); err != nil {
			return err
		}
		if err := putJSON(root, "timestamp", state.UpdateTimestamp); err != nil {
			return err
		}
		if err := putJSON(root, "type", state.TypeName); err != nil {
			return err
		}
		if err := putJSON(root, "entries", state.Entries); err != nil {
			return err
		}
		if len(state.Rule) > 0 {
			if err := putJSON(root, "rule", state.Rule); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Storage) getKey(name, key string) ([]byte, error) {
	var data []byte
	err := s.storage.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("%s bucket does not exist", name)
		}
		data = b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("could not fetch %s for %s", key, name)
		}
		return nil
	})
	return data, err
}

func (s *Storage) GetTimestamp(name string) (time.Time, error) {
	result := time.Now().AddDate(0, 0, -2)
	data, err := s.getKey(name, "timestamp")
	if err != nil {
		return result, err
	}
	if err = json.Unmarshal(data, &result); err != nil {
		log.Warn(err)
	}
	log.Debug(fmt.Sprintf("%s update time: %v", name, result))
	return result, err
}

func (s *Storage) GetApplied(name string) (bool, error) {
	var status bool
	data, err := s.getKey(name, "applied")
	if err != nil {
		return false, err
	}
	if err = json.Unmarshal(data, &status); err != nil {
		log.Warn(err)
	}
	log.Debug(fmt.Sprintf("%s is applied: %v", name, status))
	return status, nil
}

func (s *Storage) SetApplied(name string, applied bool) error {
	err := s.storage.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("%s bucket does not exist", name)
		}
		return putJSON(b, "applied", applied)
	})
	if err != nil {
		return fmt.Errorf("update operation for %s bucket failed: %v", name, err)
	}
	return nil
}

func (s *Storage) StoreRule(name string, rule []string) error {
	err := s.storage.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("%s bucket does not exist", name)
		}
		return putJSON(b, "rule", rule)
	})
	if err != nil {
		return fmt.Errorf("update operation for %s bucket failed: %v", name, err)
	}
	return nil
}

func (s *Storage) GetRule(name string) ([]string, error) {
	var rule []string
	data, err := s.getKey(name, "rule")
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(data, &rule); err != nil {
		log.Error(err)
		return nil, err
	}
	return rule, nil
}

func (s *Storage) GetSetState(name string) (*models.SetState, error) {
	var (
		t, ty, en []byte

		timestamp time.Time
		typeName  string
		entries   []string
	)

	err := s.storage.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("%s bucket does not exist", name)
		}
		t = b.Get([]byte("timestamp"))
		if t == nil {
			return fmt.Errorf("could not fetch timestamp for %s", name)
		}
		ty = b.Get([]byte("type"))
		if ty == nil {
			return fmt.Errorf("could not fetch type for %s", name)
		}
		en = b.Get([]byte("entries"))
		if en == nil {
			return fmt.Errorf("could not fetch entries for %s", name)
		}
		return nil
	})
	if err != nil {
		log.Error("Fetch set state from db error:", err)
		return nil, err
	}

	if err = json.Unmarshal(t, &timestamp); err != nil {
		log.Warn(err)
		timestamp = time.Now().AddDate(0, 0, -2)
	}
	if err = json.Unmarshal(ty, &typeName); err != nil {
		log.Error(err)
		return nil, err
	}
	if err = json.Unmarshal(en, &entries); err != nil {
		log.Error(err)
		return nil, err
	}

	state := &models.SetState{
		Name:            name,
		TypeName:        typeName,
		UpdateTimestamp: timestamp,
		Entries:         entries,
	}
	if applied, err := s.GetApplied(name); err == nil {
		state.Applied = applied
	}
	if rule, err := s.GetRule(name); err == nil {
		state.Rule = rule
	}

	return state, nil
}

func (s *Storage) ListSets() ([]string, error) {
	var names []string
	err := s.storage.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	return names, err
}

func (s *Storage) DeleteSet(name string) error {
	err := s.storage.Update(func(tx *bolt.Tx) error {
		return tx.DeleteBucket([]byte(name))
	})
	if err != nil && err != bolt.ErrBucketNotFound {
		return fmt.Errorf("could not delete %s bucket: %v", name, err)
	}
	return nil
}
