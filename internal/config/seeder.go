package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"assotessera/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// SeedReferenceData loads the municipality and given-name reference tables
// from CSV files when they are empty. Both files are optional; a missing
// file is logged and skipped so a fresh dev database still boots.
func SeedReferenceData(db *gorm.DB, cfg *Config) error {
	if err := seedComuni(db, cfg.Seed.ComuniCSVPath); err != nil {
		return err
	}
	if err := seedNames(db, cfg.Seed.NamesCSVPath); err != nil {
		return err
	}
	return nil
}

// seedComuni loads rows of "name,province,cadastral_code"
func seedComuni(db *gorm.DB, path string) error {
	var count int64
	if err := db.Model(&models.Comune{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		log.Printf("⚠️ Comuni seed file not found (%s), skipping", path)
		return nil
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var comuni []models.Comune
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read comuni CSV: %w", err)
		}
		if len(record) < 3 {
			continue
		}
		comuni = append(comuni, models.Comune{
			Name:          strings.TrimSpace(record[0]),
			Province:      strings.ToUpper(strings.TrimSpace(record[1])),
			CadastralCode: strings.ToUpper(strings.TrimSpace(record[2])),
		})
	}

	if len(comuni) == 0 {
		return nil
	}
	if err := db.CreateInBatches(comuni, 500).Error; err != nil {
		return err
	}

	log.Printf("✅ Seeded %d comuni", len(comuni))
	return nil
}

// seedNames loads rows of "name,gender"
func seedNames(db *gorm.DB, path string) error {
	var count int64
	if err := db.Model(&models.NameDictionary{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		log.Printf("⚠️ Name dictionary seed file not found (%s), skipping", path)
		return nil
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var names []models.NameDictionary
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read names CSV: %w", err)
		}
		if len(record) < 2 {
			continue
		}
		gender := strings.ToUpper(strings.TrimSpace(record[1]))
		if gender != "M" && gender != "F" {
			continue
		}
		names = append(names, models.NameDictionary{
			Name:   strings.ToUpper(strings.TrimSpace(record[0])),
			Gender: gender,
		})
	}

	if len(names) == 0 {
		return nil
	}
	if err := db.CreateInBatches(names, 500).Error; err != nil {
		return err
	}

	log.Printf("✅ Seeded %d dictionary names", len(names))
	return nil
}
