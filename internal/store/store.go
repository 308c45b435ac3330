package store

import (
	"errors"
	"log"

	"github.com/vonssyb/nacionmx-postulaciones/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := openDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.Application{},
		&models.Question{},
		&models.Setting{},
		&models.GradeRecord{},
		&models.ReviewAudit{},
	); err != nil {
		return nil, err
	}

	store := &Store{db: db}

	// Seed default data
	if err := store.seedData(); err != nil {
		log.Printf("Warning: failed to seed data: %v", err)
	}

	return store, nil
}

// defaultQuestions is the initial intake form, used only on an empty database.
var defaultQuestions = []models.Question{
	{Step: 2, Position: 1, Prompt: "¿Por qué quieres ser parte del staff?", Type: models.QuestionTypeTextarea, MinLength: 50},
	{Step: 2, Position: 2, Prompt: "¿Qué experiencia previa tienes moderando comunidades?", Type: models.QuestionTypeTextarea, MinLength: 30},
	{Step: 2, Position: 3, Prompt: "¿Cuántas horas a la semana puedes dedicar?", Type: models.QuestionTypeText},
	{Step: 3, Position: 1, Prompt: "Un usuario insulta a otro en el chat general. ¿Qué haces?", Type: models.QuestionTypeTextarea, MinLength: 30},
	{Step: 3, Position: 2, Prompt: "Un miembro del staff abusa de sus permisos. ¿Cómo procedes?", Type: models.QuestionTypeTextarea, MinLength: 30},
}

func (s *Store) seedData() error {
	// Seed the intake form if empty
	var questionCount int64
	s.db.Model(&models.Question{}).Count(&questionCount)
	if questionCount == 0 {
		for i := range defaultQuestions {
			q := defaultQuestions[i]
			q.ID = uuid.New().String()
			q.Required = true
			q.Active = true
			if err := s.db.Create(&q).Error; err != nil {
				return err
			}
		}
		log.Printf("Seeded %d default intake questions", len(defaultQuestions))
	}

	// Ensure the staff allow-list key exists so the admin UI can edit it
	var setting models.Setting
	err := s.db.Where("key = ?", models.SettingStaffApprovalRoles).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = models.Setting{
			Key:         models.SettingStaffApprovalRoles,
			Description: "Comma-separated Discord role IDs allowed into the staff area",
		}
		if err := s.db.Create(&setting).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return nil
}

// DB exposes the underlying handle for health checks
func (s *Store) DB() *gorm.DB {
	return s.db
}
