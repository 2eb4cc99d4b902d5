package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/mmeshcher/billdesk/internal/model"
)

var (
	billsBucket        = []byte("bills")
	catalogBucket      = []byte("catalog")
	catalogNamesBucket = []byte("catalog_names")
	operatorsBucket    = []byte("operators")
	metaBucket         = []byte("meta")

	catalogSeededKey = []byte("catalog_seeded")
)

// BoltRepository хранит архив счетов, меню и операторов в одном файле BoltDB.
//
// Ключами счетов служат порядковые номера из NextSequence в big-endian, поэтому
// порядок ключей совпадает с порядком записи.
type BoltRepository struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltRepository открывает (или создаёт) файл БД. При первом открытии меню заполняется стартовыми позициями.
func NewBoltRepository(path string) (*BoltRepository, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{billsBucket, catalogBucket, catalogNamesBucket, operatorsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}

		meta := tx.Bucket(metaBucket)
		if meta.Get(catalogSeededKey) != nil {
			return nil
		}
		for _, item := range DefaultCatalog {
			if _, err := putItem(tx, item.Name, item.Price); err != nil {
				return err
			}
		}
		return meta.Put(catalogSeededKey, []byte{1})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt buckets: %w", err)
	}

	return &BoltRepository{db: db, now: time.Now}, nil
}

// Close освобождает блокировку файла БД.
func (r *BoltRepository) Close() error {
	return r.db.Close()
}

// Ping проверяет, что файл БД открыт и читается.
func (r *BoltRepository) Ping(ctx context.Context) error {
	err := r.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(billsBucket) == nil {
			return fmt.Errorf("bucket %s missing", billsBucket)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// AppendBill добавляет счёт в архив. Время создания не меньше времени предыдущей записи,
// поэтому и идентификаторы, и метки времени не убывают.
func (r *BoltRepository) AppendBill(ctx context.Context, clientName string, items []model.LineItem, grandTotal model.Amount) (*model.BillRecord, error) {
	rec := model.BillRecord{
		ClientName: clientName,
		Items:      copyItems(items),
		GrandTotal: grandTotal,
	}

	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(billsBucket)

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		createdAt := r.now().UTC()
		if k, v := b.Cursor().Last(); k != nil {
			var last model.BillRecord
			if err := json.Unmarshal(v, &last); err != nil {
				return err
			}
			if createdAt.Before(last.CreatedAt) {
				createdAt = last.CreatedAt
			}
		}

		rec.ID = int64(seq)
		rec.CreatedAt = createdAt

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: append bill: %w", ErrStorageUnavailable, err)
	}

	return &rec, nil
}

// ListBills возвращает все счета архива, начиная с самых новых.
func (r *BoltRepository) ListBills(ctx context.Context) ([]model.BillRecord, error) {
	var res []model.BillRecord

	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(billsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var rec model.BillRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			res = append(res, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list bills: %w", ErrStorageUnavailable, err)
	}

	return res, nil
}

// GetBill возвращает счёт по идентификатору.
func (r *BoltRepository) GetBill(ctx context.Context, id int64) (*model.BillRecord, error) {
	if id <= 0 {
		return nil, ErrBillNotFound
	}

	var rec model.BillRecord
	found := false

	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(billsBucket).Get(itob(uint64(id)))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get bill: %w", ErrStorageUnavailable, err)
	}
	if !found {
		return nil, ErrBillNotFound
	}

	return &rec, nil
}

// ListItems возвращает меню в порядке добавления позиций.
func (r *BoltRepository) ListItems(ctx context.Context) ([]model.CatalogItem, error) {
	res := []model.CatalogItem{}

	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(catalogBucket).ForEach(func(k, v []byte) error {
			var item model.CatalogItem
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			res = append(res, item)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}

	return res, nil
}

// CreateItem добавляет позицию в меню. Названия позиций уникальны.
func (r *BoltRepository) CreateItem(ctx context.Context, name string, price model.Amount) (int64, error) {
	var id int64

	err := r.db.Update(func(tx *bolt.Tx) error {
		var err error
		id, err = putItem(tx, name, price)
		return err
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

func putItem(tx *bolt.Tx, name string, price model.Amount) (int64, error) {
	names := tx.Bucket(catalogNamesBucket)
	if names.Get([]byte(name)) != nil {
		return 0, fmt.Errorf("%w: %s", ErrItemExists, name)
	}

	b := tx.Bucket(catalogBucket)
	seq, err := b.NextSequence()
	if err != nil {
		return 0, fmt.Errorf("next catalog id: %w", err)
	}

	item := model.CatalogItem{ID: int64(seq), Name: name, Price: price}
	data, err := json.Marshal(item)
	if err != nil {
		return 0, fmt.Errorf("marshal catalog item: %w", err)
	}

	if err := b.Put(itob(seq), data); err != nil {
		return 0, fmt.Errorf("put catalog item: %w", err)
	}
	if err := names.Put([]byte(name), itob(seq)); err != nil {
		return 0, fmt.Errorf("put catalog name: %w", err)
	}

	return item.ID, nil
}

// DeleteItem удаляет позицию меню.
func (r *BoltRepository) DeleteItem(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrItemNotFound
	}

	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(catalogBucket)
		key := itob(uint64(id))

		v := b.Get(key)
		if v == nil {
			return ErrItemNotFound
		}

		var item model.CatalogItem
		if err := json.Unmarshal(v, &item); err != nil {
			return fmt.Errorf("decode catalog item: %w", err)
		}

		if err := tx.Bucket(catalogNamesBucket).Delete([]byte(item.Name)); err != nil {
			return fmt.Errorf("delete catalog name: %w", err)
		}
		return b.Delete(key)
	})
}

type boltOperator struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	PasswordHash []byte    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateOperator создаёт нового оператора.
func (r *BoltRepository) CreateOperator(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64

	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(operatorsBucket)
		if b.Get([]byte(login)) != nil {
			return fmt.Errorf("%w: %s", ErrOperatorExists, login)
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		data, err := json.Marshal(boltOperator{
			ID:           int64(seq),
			Login:        login,
			PasswordHash: passwordHash,
			CreatedAt:    r.now().UTC(),
		})
		if err != nil {
			return err
		}

		id = int64(seq)
		return b.Put([]byte(login), data)
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// GetOperatorByLogin возвращает оператора по логину.
func (r *BoltRepository) GetOperatorByLogin(ctx context.Context, login string) (*model.Operator, error) {
	var op boltOperator
	found := false

	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(operatorsBucket).Get([]byte(login))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &op)
	})
	if err != nil {
		return nil, fmt.Errorf("get operator: %w", err)
	}
	if !found {
		return nil, ErrOperatorNotFound
	}

	return &model.Operator{
		ID:           op.ID,
		Login:        op.Login,
		PasswordHash: op.PasswordHash,
		CreatedAt:    op.CreatedAt,
	}, nil
}
