// Package catalog seeds the achievement and task catalogs. Built-in
// defaults mirror the stock MindfulTime content; either catalog can be
// replaced by a YAML file pointed at from configuration.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mindfultime/mindfultime-server/internal/models"
	"github.com/mindfultime/mindfultime-server/internal/repository"
	"github.com/mindfultime/mindfultime-server/pkg/logger"
)

// achievementSeed is the YAML shape of one achievement entry.
type achievementSeed struct {
	Slug        string `yaml:"slug"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Requirement int    `yaml:"requirement"`
	Type        string `yaml:"type"`
	Category    string `yaml:"category"`
	RewardBonus int    `yaml:"reward_bonus"`
}

// taskSeed is the YAML shape of one task entry.
type taskSeed struct {
	Slug          string `yaml:"slug"`
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	Category      string `yaml:"category"`
	TimeReward    int    `yaml:"time_reward"`
	Icon          string `yaml:"icon"`
	RequiresPhoto bool   `yaml:"requires_photo"`
}

// SeedAchievements populates the achievement catalog if it is empty.
// Existing catalogs are left untouched: requirements of already-seeded
// achievements must not shift under users.
func SeedAchievements(repo *repository.AchievementRepository, seedFile string, log *logger.Logger) error {
	count, err := repo.Count()
	if err != nil {
		return fmt.Errorf("failed to count achievements: %w", err)
	}
	if count > 0 {
		log.Debug().Int64("count", count).Msg("Achievement catalog already seeded")
		return nil
	}

	seeds := defaultAchievements
	if seedFile != "" {
		seeds, err = loadSeeds[achievementSeed](seedFile)
		if err != nil {
			return fmt.Errorf("failed to load achievement seed file: %w", err)
		}
	}

	for _, s := range seeds {
		achievement := &models.Achievement{
			Slug:        s.Slug,
			Title:       s.Title,
			Description: s.Description,
			Icon:        s.Icon,
			Requirement: s.Requirement,
			Type:        s.Type,
			Category:    s.Category,
			RewardBonus: s.RewardBonus,
		}
		if err := repo.Create(achievement); err != nil {
			return fmt.Errorf("failed to seed achievement %q: %w", s.Slug, err)
		}
	}

	log.Info().Int("count", len(seeds)).Msg("Seeded achievement catalog")
	return nil
}

// SeedTasks populates the task catalog if it is empty.
func SeedTasks(repo *repository.TaskRepository, seedFile string, log *logger.Logger) error {
	count, err := repo.Count()
	if err != nil {
		return fmt.Errorf("failed to count tasks: %w", err)
	}
	if count > 0 {
		log.Debug().Int64("count", count).Msg("Task catalog already seeded")
		return nil
	}

	seeds := defaultTasks
	if seedFile != "" {
		seeds, err = loadSeeds[taskSeed](seedFile)
		if err != nil {
			return fmt.Errorf("failed to load task seed file: %w", err)
		}
	}

	for _, s := range seeds {
		task := &models.MindfulTask{
			Slug:          s.Slug,
			Title:         s.Title,
			Description:   s.Description,
			Category:      s.Category,
			TimeReward:    s.TimeReward,
			Icon:          s.Icon,
			RequiresPhoto: s.RequiresPhoto,
		}
		if err := repo.Create(task); err != nil {
			return fmt.Errorf("failed to seed task %q: %w", s.Slug, err)
		}
	}

	log.Info().Int("count", len(seeds)).Msg("Seeded task catalog")
	return nil
}

// loadSeeds reads a YAML seed file into a slice of entries.
func loadSeeds[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seeds []T
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("seed file %s contains no entries", path)
	}
	return seeds, nil
}
