package keystore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/veeringman/KeyCortex/pkg/types"
)

var (
	// Bucket names
	bucketWalletKeys     = []byte("wallet-keys")
	bucketWalletMeta     = []byte("wallet-meta")
	bucketWalletBindings = []byte("wallet-bindings")
	bucketAuditEvents    = []byte("audit-events")
	bucketSubmittedTxs   = []byte("submitted-txs")
	bucketWalletNonces   = []byte("wallet-nonces")
	bucketSubmitIdem     = []byte("submit-idempotency")
)

// readinessProbeKey is read by Ping; it never exists, the read just
// proves the store answers
const readinessProbeKey = "__readiness_probe__"

// Audit list limits
const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// BoltStore implements Store using BoltDB. It holds wrapped wallet
// keys plus every durable record the service keeps when Postgres is
// unavailable. Loads of absent records return (nil, nil); callers
// decide whether absence is an error.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the keystore under the given
// directory
func NewBoltStore(keystorePath string) (*BoltStore, error) {
	if err := os.MkdirAll(keystorePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}

	dbPath := filepath.Join(keystorePath, "keycortex.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketWalletKeys,
			bucketWalletMeta,
			bucketWalletBindings,
			bucketAuditEvents,
			bucketSubmittedTxs,
			bucketWalletNonces,
			bucketSubmitIdem,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Ping exercises a read so readiness checks can tell an open store from
// a broken one
func (s *BoltStore) Ping() error {
	return s.db.View(func(tx *bolt.Tx) error {
		tx.Bucket(bucketWalletKeys).Get([]byte(readinessProbeKey))
		return nil
	})
}

// Wallet key operations

// SaveWalletKey stores wrapped key material for a wallet address.
// The value is the raw wrapped bytes, never plaintext.
func (s *BoltStore) SaveWalletKey(walletAddress string, encryptedKey []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWalletKeys)
		return b.Put([]byte(walletAddress), encryptedKey)
	})
}

func (s *BoltStore) LoadWalletKey(walletAddress string) ([]byte, error) {
	var encrypted []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWalletKeys)
		data := b.Get([]byte(walletAddress))
		if data != nil {
			encrypted = make([]byte, len(data))
			copy(encrypted, data)
		}
		return nil
	})
	return encrypted, err
}

// Wallet metadata operations

func (s *BoltStore) SaveWalletMeta(meta *types.WalletMeta) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWalletMeta)
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return b.Put([]byte(meta.WalletAddress), data)
	})
}

func (s *BoltStore) LoadWalletMeta(walletAddress string) (*types.WalletMeta, error) {
	var meta *types.WalletMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWalletMeta)
		data := b.Get([]byte(walletAddress))
		if data == nil {
			return nil
		}
		meta = &types.WalletMeta{}
		return json.Unmarshal(data, meta)
	})
	return meta, err
}

// ListWallets walks every stored wallet key and joins metadata where it
// exists. Wallets created before metadata was recorded still appear,
// with only the address populated.
func (s *BoltStore) ListWallets() ([]*types.WalletMeta, error) {
	var wallets []*types.WalletMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		keys := tx.Bucket(bucketWalletKeys)
		metas := tx.Bucket(bucketWalletMeta)
		return keys.ForEach(func(k, v []byte) error {
			meta := &types.WalletMeta{WalletAddress: string(k)}
			if data := metas.Get(k); data != nil {
				if err := json.Unmarshal(data, meta); err != nil {
					return err
				}
			}
			wallets = append(wallets, meta)
			return nil
		})
	})
	return wallets, err
}

// CountWallets returns the number of stored wallet keys
func (s *BoltStore) CountWallets() (int, error) {
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketWalletKeys).Stats().KeyN
		return nil
	})
	return count, err
}

// Wallet binding operations

func (s *BoltStore) SaveWalletBinding(binding *types.WalletBinding) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWalletBindings)
		data, err := json.Marshal(binding)
		if err != nil {
			return err
		}
		return b.Put([]byte(binding.WalletAddress), data)
	})
}

func (s *BoltStore) LoadWalletBinding(walletAddress string) (*types.WalletBinding, error) {
	var binding *types.WalletBinding
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWalletBindings)
		data := b.Get([]byte(walletAddress))
		if data == nil {
			return nil
		}
		binding = &types.WalletBinding{}
		return json.Unmarshal(data, binding)
	})
	return binding, err
}

// CountBindings returns the number of stored wallet bindings
func (s *BoltStore) CountBindings() (int, error) {
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketWalletBindings).Stats().KeyN
		return nil
	})
	return count, err
}

// Audit operations

// AppendAuditEvent stores an audit event keyed so a reverse cursor walk
// yields newest-first order. Assigns an event id when the caller left
// it empty. Events are never updated or deleted.
func (s *BoltStore) AppendAuditEvent(event *types.AuditEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}

	key := fmt.Sprintf("%020d:%s", event.TimestampEpochMs, event.EventID)

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAuditEvents)
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

// ListAuditEvents returns events newest-first, optionally filtered by
// event type, wallet address, and outcome. A non-positive limit means
// the default of 100; limits above 500 are clamped.
func (s *BoltStore) ListAuditEvents(limit int, eventType, walletAddress, outcome string) ([]*types.AuditEvent, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	var events []*types.AuditEvent
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAuditEvents).Cursor()
		for k, v := c.Last(); k != nil && len(events) < limit; k, v = c.Prev() {
			var event types.AuditEvent
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			if eventType != "" && event.EventType != eventType {
				continue
			}
			if walletAddress != "" && event.WalletAddress != walletAddress {
				continue
			}
			if outcome != "" && string(event.Outcome) != outcome {
				continue
			}
			events = append(events, &event)
		}
		return nil
	})
	return events, err
}

// Submitted transaction operations

func (s *BoltStore) SaveSubmittedTx(tx *types.SubmittedTx) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		b := btx.Bucket(bucketSubmittedTxs)
		data, err := json.Marshal(tx)
		if err != nil {
			return err
		}
		return b.Put([]byte(tx.TxHash), data)
	})
}

func (s *BoltStore) LoadSubmittedTx(txHash string) (*types.SubmittedTx, error) {
	var record *types.SubmittedTx
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSubmittedTxs)
		data := b.Get([]byte(txHash))
		if data == nil {
			return nil
		}
		record = &types.SubmittedTx{}
		return json.Unmarshal(data, record)
	})
	return record, err
}

// Nonce operations

func (s *BoltStore) SaveWalletNonce(nonce *types.WalletNonce) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWalletNonces)
		data, err := json.Marshal(nonce)
		if err != nil {
			return err
		}
		return b.Put([]byte(nonce.WalletAddress), data)
	})
}

func (s *BoltStore) LoadWalletNonce(walletAddress string) (*types.WalletNonce, error) {
	var nonce *types.WalletNonce
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWalletNonces)
		data := b.Get([]byte(walletAddress))
		if data == nil {
			return nil
		}
		nonce = &types.WalletNonce{}
		return json.Unmarshal(data, nonce)
	})
	return nonce, err
}

// Idempotency operations

func (s *BoltStore) SaveSubmitIdempotency(record *types.SubmitIdempotency) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSubmitIdem)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(record.IdempotencyKey), data)
	})
}

func (s *BoltStore) LoadSubmitIdempotency(key string) (*types.SubmitIdempotency, error) {
	var record *types.SubmitIdempotency
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSubmitIdem)
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		record = &types.SubmitIdempotency{}
		return json.Unmarshal(data, record)
	})
	return record, err
}

// HasWalletKey reports whether wrapped key material exists for the
// address without copying it out
func (s *BoltStore) HasWalletKey(walletAddress string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketWalletKeys).Get([]byte(walletAddress)) != nil
		return nil
	})
	return exists, err
}

// WalletKeyEquals reports whether the stored wrapped bytes for the
// address match the given bytes. Used by restore to distinguish an
// identical re-derivation from a clash.
func (s *BoltStore) WalletKeyEquals(walletAddress string, encryptedKey []byte) (bool, error) {
	var equal bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketWalletKeys).Get([]byte(walletAddress))
		equal = data != nil && bytes.Equal(data, encryptedKey)
		return nil
	})
	return equal, err
}
