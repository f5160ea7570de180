package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phenobridge/platform/pkg/phenopacket"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("document not found")

type DocumentModel struct {
	ID            string            `gorm:"primaryKey;column:id"`
	PatientID     string            `gorm:"column:patient_id;index"`
	Document      datatypes.JSONMap `gorm:"column:document"`
	SchemaVersion string            `gorm:"column:schema_version"`
	CreatedBy     string            `gorm:"column:created_by"`
	CreatedAt     time.Time         `gorm:"column:created_at"`
}

func (DocumentModel) TableName() string {
	return "phenopacket_documents"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&DocumentModel{})
}

func (r *Repository) Save(ctx context.Context, packet *phenopacket.Phenopacket) error {
	doc, err := toJSONMap(packet)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	rec := &DocumentModel{
		ID:            uuid.New().String(),
		PatientID:     packet.ID,
		Document:      doc,
		SchemaVersion: packet.MetaData.PhenopacketSchemaVersion,
		CreatedBy:     packet.MetaData.CreatedBy,
		CreatedAt:     time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// Latest returns the newest persisted document for a patient.
func (r *Repository) Latest(ctx context.Context, patientID string) (*DocumentModel, error) {
	var rec DocumentModel
	result := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at desc").
		First(&rec)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, result.Error
}

func toJSONMap(packet *phenopacket.Phenopacket) (datatypes.JSONMap, error) {
	raw, err := json.Marshal(packet)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return datatypes.JSONMap(m), nil
}
