// Package filter decides whether a file or folder is hidden, inaccessible or
// download-blocked for a storage source, based on that source's ordered
// glob-style rule list and the requesting user's permissions.
package filter

import (
	"context"
	"log"
	"strings"

	"gorm.io/gorm"

	"filegate/internal/models"
	"filegate/internal/storage"
)

// PermissionResolver answers the one capability question the evaluator
// needs: does this user hold an operator permission on this storage source.
type PermissionResolver interface {
	HasStoragePermission(ctx context.Context, userID, storageID uint, operator string) (bool, error)
}

// Service is the filter rule service: cached reads, the three decision entry
// points and the rule set mutations.
type Service struct {
	db    *gorm.DB
	perm  PermissionResolver
	cache *ruleCache
}

func NewService(db *gorm.DB, perm PermissionResolver) *Service {
	return &Service{db: db, perm: perm, cache: newRuleCache()}
}

// FindByStorageID returns every rule of the storage source in storage order.
func (s *Service) FindByStorageID(storageID uint) ([]models.FilterRule, error) {
	return s.findView(storageID, viewBase, nil)
}

// FindInaccessible returns the inaccessible-mode subset in storage order.
func (s *Service) FindInaccessible(storageID uint) ([]models.FilterRule, error) {
	return s.findView(storageID, viewInaccessible, []models.RuleMode{models.RuleModeInaccessible})
}

// FindDisableDownload returns the disable-download subset in storage order.
func (s *Service) FindDisableDownload(storageID uint) ([]models.FilterRule, error) {
	return s.findView(storageID, viewDisableDownload, []models.RuleMode{models.RuleModeDisableDownload})
}

func (s *Service) findView(storageID uint, view string, modes []models.RuleMode) ([]models.FilterRule, error) {
	if rules, ok := s.cache.get(storageID, view); ok {
		return rules, nil
	}

	query := s.db.Where("storage_id = ?", storageID).Order("id ASC")
	if len(modes) > 0 {
		query = query.Where("mode IN ?", modes)
	}
	var rules []models.FilterRule
	if err := query.Find(&rules).Error; err != nil {
		return nil, err
	}

	s.cache.put(storageID, view, rules)
	return rules, nil
}

// BatchSave replaces the rule set of the storage source: all previous rules
// are deleted and the new ones inserted with fresh ids, in one transaction.
func (s *Service) BatchSave(storageID uint, rules []models.FilterRule) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("storage_id = ?", storageID).Delete(&models.FilterRule{}).Error; err != nil {
			return err
		}
		for i := range rules {
			rules[i].ID = 0
			rules[i].StorageID = storageID
			if err := tx.Create(&rules[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	s.cache.invalidate(storageID)
	if err != nil {
		return err
	}
	log.Printf("replaced filter rules for storage %d, now %d rules", storageID, len(rules))
	return nil
}

// DeleteByStorageID removes every rule of the storage source and reports how
// many were deleted.
func (s *Service) DeleteByStorageID(storageID uint) (int64, error) {
	res := s.db.Where("storage_id = ?", storageID).Delete(&models.FilterRule{})
	s.cache.invalidate(storageID)
	if res.Error != nil {
		return 0, res.Error
	}
	log.Printf("deleted %d filter rules for storage %d", res.RowsAffected, storageID)
	return res.RowsAffected, nil
}

// OnStorageDelete cascades a storage source deletion to its rules.
func (s *Service) OnStorageDelete(ev storage.DeleteEvent) {
	if _, err := s.DeleteByStorageID(ev.ID); err != nil {
		log.Printf("failed to delete filter rules of removed storage %d (%s): %v", ev.ID, ev.Name, err)
	}
}

// OnStorageCopy duplicates the source's rules verbatim under the new storage
// source, preserving storage order and assigning fresh ids.
func (s *Service) OnStorageCopy(ev storage.CopyEvent) {
	rules, err := s.FindByStorageID(ev.FromID)
	if err != nil {
		log.Printf("failed to load filter rules of storage %d for copy: %v", ev.FromID, err)
		return
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, rule := range rules {
			dup := rule
			dup.ID = 0
			dup.StorageID = ev.NewID
			if err := tx.Create(&dup).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("failed to copy filter rules from storage %d to %d: %v", ev.FromID, ev.NewID, err)
		return
	}
	log.Printf("copied %d filter rules from storage %d to %d", len(rules), ev.FromID, ev.NewID)
}

// CheckHidden reports whether the file or folder name must not be shown to
// the user. Matches the full rule list of the source.
func (s *Service) CheckHidden(ctx context.Context, userID, storageID uint, fileName string) (bool, error) {
	rules, err := s.FindByStorageID(storageID)
	if err != nil {
		return false, err
	}
	return s.testRules(ctx, userID, storageID, rules, fileName)
}

// CheckInaccessible reports whether the requested path is blocked outright.
func (s *Service) CheckInaccessible(ctx context.Context, userID, storageID uint, path string) (bool, error) {
	rules, err := s.FindInaccessible(storageID)
	if err != nil {
		return false, err
	}
	return s.testRules(ctx, userID, storageID, rules, path)
}

// CheckDisableDownload reports whether downloading the file is blocked. The
// rules are tested against the file name and, when present, its parent path,
// so a rule written against a directory covers everything beneath it.
func (s *Service) CheckDisableDownload(ctx context.Context, userID, storageID uint, fileName string) (bool, error) {
	rules, err := s.FindDisableDownload(storageID)
	if err != nil {
		return false, err
	}

	blocked, err := s.testRules(ctx, userID, storageID, rules, fileName)
	if err != nil || blocked {
		return blocked, err
	}
	if parent := parentPath(fileName); parent != "" {
		return s.testRules(ctx, userID, storageID, rules, parent)
	}
	return false, nil
}

// testRules is the decision procedure: empty list and bypass permission
// short-circuit to false, then first match in storage order wins. A rule
// with an empty expression is inert and a malformed expression is logged
// and skipped, never failing the whole check.
func (s *Service) testRules(ctx context.Context, userID, storageID uint, rules []models.FilterRule, candidate string) (bool, error) {
	if len(rules) == 0 {
		return false, nil
	}

	ignore, err := s.perm.HasStoragePermission(ctx, userID, storageID, models.OperatorIgnoreHidden)
	if err != nil {
		return false, err
	}
	if ignore {
		return false, nil
	}

	for _, rule := range rules {
		if rule.Expression == "" {
			continue
		}
		match, err := Match(rule.Expression, candidate)
		if err != nil {
			log.Printf("storage %d: skipping filter rule %d: %v", storageID, rule.ID, err)
			continue
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// parentPath returns the `/`-separated parent of name, or "" for bare names.
func parentPath(name string) string {
	i := strings.LastIndex(name, "/")
	switch {
	case i < 0:
		return ""
	case i == 0:
		return "/"
	default:
		return name[:i]
	}
}

// CacheStats exposes hit/miss counters of the rule cache.
func (s *Service) CacheStats() (hits, misses uint64) {
	return s.cache.stats()
}
