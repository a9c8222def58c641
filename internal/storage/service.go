package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"filegate/internal/models"
)

// ErrNotFound means the storage source does not exist.
var ErrNotFound = errors.New("storage source not found")

// DeleteEvent is delivered to subscribers after a storage source row is gone.
type DeleteEvent struct {
	ID   uint
	Name string
	Type models.StorageType
}

// CopyEvent is delivered to subscribers after a storage source has been
// duplicated, so dependent configuration can follow.
type CopyEvent struct {
	FromID uint
	NewID  uint
}

// Service owns storage source CRUD and notifies narrowly-typed subscribers
// on delete and copy instead of going through a global event bus.
type Service struct {
	db       *gorm.DB
	onDelete []func(DeleteEvent)
	onCopy   []func(CopyEvent)
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// SubscribeDelete registers a delete listener. Not safe after requests start;
// wire subscribers at startup.
func (s *Service) SubscribeDelete(fn func(DeleteEvent)) {
	s.onDelete = append(s.onDelete, fn)
}

func (s *Service) SubscribeCopy(fn func(CopyEvent)) {
	s.onCopy = append(s.onCopy, fn)
}

func (s *Service) List(ctx context.Context) ([]models.StorageSource, error) {
	var sources []models.StorageSource
	err := s.db.WithContext(ctx).
		Order("sort_order ASC, id ASC").
		Find(&sources).Error
	return sources, err
}

func (s *Service) Get(ctx context.Context, id uint) (*models.StorageSource, error) {
	var src models.StorageSource
	if err := s.db.WithContext(ctx).First(&src, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &src, nil
}

func (s *Service) GetByKey(ctx context.Context, key string) (*models.StorageSource, error) {
	var src models.StorageSource
	if err := s.db.WithContext(ctx).Where("`key` = ?", key).First(&src).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &src, nil
}

func (s *Service) Create(ctx context.Context, src *models.StorageSource) error {
	return s.db.WithContext(ctx).Create(src).Error
}

func (s *Service) Update(ctx context.Context, src *models.StorageSource) error {
	return s.db.WithContext(ctx).Save(src).Error
}

// Delete removes the storage source row and notifies subscribers so
// dependent configuration (filter rules, grants) is cleaned up with it.
func (s *Service) Delete(ctx context.Context, id uint) error {
	src, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.StorageSource{}, id).Error; err != nil {
		return err
	}
	log.Printf("deleted storage source %d (%s)", src.ID, src.Name)

	ev := DeleteEvent{ID: src.ID, Name: src.Name, Type: src.Type}
	for _, fn := range s.onDelete {
		fn(ev)
	}
	return nil
}

// Copy duplicates the storage source under a fresh id and key, then notifies
// subscribers so per-source configuration is copied along.
func (s *Service) Copy(ctx context.Context, id uint) (uint, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	dup := *src
	dup.ID = 0
	dup.Name = src.Name + " copy"
	dup.Key, err = s.freeKey(ctx, src.Key+"-copy")
	if err != nil {
		return 0, err
	}
	if err := s.db.WithContext(ctx).Create(&dup).Error; err != nil {
		return 0, err
	}
	log.Printf("copied storage source %d to %d", src.ID, dup.ID)

	ev := CopyEvent{FromID: src.ID, NewID: dup.ID}
	for _, fn := range s.onCopy {
		fn(ev)
	}
	return dup.ID, nil
}

// freeKey returns base, or base-2, base-3, ... until the key is unused.
func (s *Service) freeKey(ctx context.Context, base string) (string, error) {
	key := base
	for n := 2; ; n++ {
		var count int64
		err := s.db.WithContext(ctx).
			Model(&models.StorageSource{}).
			Where("`key` = ?", key).
			Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return key, nil
		}
		key = fmt.Sprintf("%s-%d", base, n)
	}
}
