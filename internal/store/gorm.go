package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/a3tai/pdf-field-designer/internal/fields"
	"github.com/a3tai/pdf-field-designer/internal/geometry"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// TemplateModel is the stored form of a Template.
type TemplateModel struct {
	ID          string    `gorm:"type:char(36);primaryKey"`
	Name        string    `gorm:"size:255;not null"`
	DocumentURL string    `gorm:"size:1024"`
	PageCount   int       `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (TemplateModel) TableName() string {
	return "templates"
}

func (m *TemplateModel) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// FieldModel is the stored form of a fields.Field.
type FieldModel struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	TemplateID  string         `gorm:"type:char(36);not null;index"`
	Name        string         `gorm:"size:255"`
	Type        string         `gorm:"size:16;not null"`
	X           float64        `gorm:"not null"`
	Y           float64        `gorm:"not null"`
	Width       float64        `gorm:"not null"`
	Height      float64        `gorm:"not null"`
	PageNumber  int            `gorm:"not null;index"`
	Required    bool           `gorm:"not null"`
	Placeholder string         `gorm:"size:255"`
	Properties  datatypes.JSON `gorm:"type:json"`
	SortOrder   int            `gorm:"not null"`
	CreatedAt   time.Time
}

func (FieldModel) TableName() string {
	return "template_fields"
}

func (m *FieldModel) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// Open connects to the configured database and migrates the schema.
func Open(driver, dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverMySQL:
		dialector = mysql.New(mysql.Config{
			DSN:               dsn,
			DefaultStringSize: 191,
		})
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := db.AutoMigrate(&TemplateModel{}, &FieldModel{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

// GormRepository stores templates and fields through gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository wraps an open, migrated database handle.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) GetTemplate(ctx context.Context, id string) (*Template, error) {
	var m TemplateModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get template %s: %w", id, ErrTemplateNotFound)
		}
		return nil, fmt.Errorf("get template %s: %w", id, err)
	}
	tpl := templateFromModel(m)
	return &tpl, nil
}

func (r *GormRepository) ListTemplates(ctx context.Context) ([]Template, error) {
	var rows []TemplateModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	out := make([]Template, len(rows))
	for i, m := range rows {
		out[i] = templateFromModel(m)
	}
	return out, nil
}

func (r *GormRepository) UpsertTemplate(ctx context.Context, tpl Template) (*Template, error) {
	m := TemplateModel{
		ID:          tpl.ID,
		Name:        tpl.Name,
		DocumentURL: tpl.DocumentURL,
		PageCount:   tpl.PageCount,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.ID != "" {
			var existing TemplateModel
			err := tx.First(&existing, "id = ?", m.ID).Error
			if err == nil {
				m.CreatedAt = existing.CreatedAt
				return tx.Save(&m).Error
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert template: %w", err)
	}

	out := templateFromModel(m)
	return &out, nil
}

func (r *GormRepository) LoadFields(ctx context.Context, templateID string) ([]fields.Field, error) {
	var rows []FieldModel
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("page_number ASC").
		Order("sort_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load fields for template %s: %w", templateID, err)
	}
	return fieldsFromModels(rows)
}

// SaveFields deletes every stored field of the template and inserts list in
// one transaction. Stored IDs are regenerated on every save.
func (r *GormRepository) SaveFields(ctx context.Context, templateID string, list []fields.Field) ([]fields.Field, error) {
	rows := make([]FieldModel, len(list))
	for i, f := range list {
		m, err := fieldToModel(templateID, i, f)
		if err != nil {
			return nil, err
		}
		rows[i] = m
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", templateID).Delete(&FieldModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save fields for template %s: %w", templateID, err)
	}

	out, err := fieldsFromModels(rows)
	if err != nil {
		return nil, err
	}
	sortByPage(out)
	return out, nil
}

func templateFromModel(m TemplateModel) Template {
	return Template{
		ID:          m.ID,
		Name:        m.Name,
		DocumentURL: m.DocumentURL,
		PageCount:   m.PageCount,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func fieldToModel(templateID string, order int, f fields.Field) (FieldModel, error) {
	props, err := fields.MarshalProperties(f.Properties)
	if err != nil {
		return FieldModel{}, err
	}
	return FieldModel{
		TemplateID:  templateID,
		Name:        f.Name,
		Type:        string(f.Type),
		X:           f.Position.X,
		Y:           f.Position.Y,
		Width:       f.Size.Width,
		Height:      f.Size.Height,
		PageNumber:  f.Page,
		Required:    f.Required,
		Placeholder: f.Placeholder,
		Properties:  datatypes.JSON(props),
		SortOrder:   order,
	}, nil
}

func fieldsFromModels(rows []FieldModel) ([]fields.Field, error) {
	out := make([]fields.Field, len(rows))
	for i, m := range rows {
		t := fields.Type(m.Type)
		props, err := fields.UnmarshalProperties(m.Properties, t)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", m.ID, err)
		}
		out[i] = fields.Field{
			ID:          m.ID,
			Name:        m.Name,
			Type:        t,
			Position:    geometry.Point{X: m.X, Y: m.Y},
			Size:        geometry.Size{Width: m.Width, Height: m.Height},
			Page:        m.PageNumber,
			Required:    m.Required,
			Placeholder: m.Placeholder,
			Properties:  props,
		}
	}
	return out, nil
}
