// Package derive computes the deficient items an inspection is expected to
// have, one per deficient inspection item.
package derive

import (
	"errors"
	"maps"

	"propcheck/internal/deficiency/models"
	inspection "propcheck/internal/inspection/models"
	"propcheck/internal/platform/config"
	dErrors "propcheck/pkg/domain-errors"
)

// Engine applies the eligibility matrix to inspection items.
type Engine struct {
	rules *config.Rules
}

func New(rules *config.Rules) (*Engine, error) {
	if rules == nil {
		return nil, errors.New("rules are required")
	}
	return &Engine{rules: rules}, nil
}

// NewDefault returns a fresh deficient item with default workflow values.
// Every call allocates; defaults are never shared between derivations.
func NewDefault(propertyID, inspectionID, itemID string) *models.DeficientItem {
	return &models.DeficientItem{
		Property:    propertyID,
		Inspection:  inspectionID,
		Item:        itemID,
		State:       models.StateRequiresAction,
		SectionType: inspection.SectionTypeSingle,
	}
}

// IsDeficient reports whether the item's current selection is marked
// deficient for its main input type.
func (e *Engine) IsDeficient(item *inspection.Item) bool {
	if item == nil || item.MainInputType == "" {
		return false
	}
	return e.rules.IsEligible(item.MainInputType, item.MainInputSelection)
}

// Derive returns the expected deficient items of insp keyed by inspection
// item id. Callers must check TracksDeficientItems first; an inspection that
// does not track deficient items is a precondition violation.
func (e *Engine) Derive(insp *inspection.Inspection) (map[string]*models.DeficientItem, error) {
	if err := checkPreconditions(insp); err != nil {
		return nil, err
	}

	expected := make(map[string]*models.DeficientItem)
	for itemID, item := range insp.Template.Items {
		if !e.IsDeficient(item) {
			continue
		}
		expected[itemID] = build(insp, itemID, item)
	}
	return expected, nil
}

func checkPreconditions(insp *inspection.Inspection) error {
	switch {
	case insp == nil:
		return dErrors.New(dErrors.CodePrecondition, "inspection is required")
	case !insp.InspectionCompleted:
		return dErrors.New(dErrors.CodePrecondition, "inspection is not completed")
	case insp.Template == nil:
		return dErrors.New(dErrors.CodePrecondition, "inspection has no template")
	case !insp.Template.TrackDeficientItems:
		return dErrors.New(dErrors.CodePrecondition, "inspection does not track deficient items")
	}
	return nil
}

func build(insp *inspection.Inspection, itemID string, item *inspection.Item) *models.DeficientItem {
	di := NewDefault(insp.Property, insp.ID, itemID)

	if section := insp.Template.Sections[item.SectionID]; section != nil {
		di.SectionTitle = section.Title
		if section.SectionType != "" {
			di.SectionType = section.SectionType
		}
	}
	if di.SectionType == inspection.SectionTypeMulti {
		di.SectionSubtitle = sectionSubtitle(insp.Template, item.SectionID)
	}

	di.ItemScore = item.SelectionValue()
	di.ItemMainInputSelection = item.MainInputSelection
	di.ItemMainInputType = item.MainInputType
	di.ItemTitle = item.Title
	di.ItemInspectorNotes = item.InspectorNotes
	if len(item.AdminEdits) > 0 {
		di.ItemAdminEdits = maps.Clone(item.AdminEdits)
	}

	di.ItemDataLastUpdatedDate = LatestAdminEditDate(item)
	if di.ItemDataLastUpdatedDate == 0 {
		di.ItemDataLastUpdatedDate = insp.UpdatedLastDate
	}

	di.ItemPhotosData = uploadedPhotos(item.PhotosData)
	di.HasItemPhotoData = len(di.ItemPhotosData) > 0
	return di
}

// sectionSubtitle is the text value of the first item of a multi section when
// that item is a text input.
func sectionSubtitle(tmpl *inspection.Template, sectionID string) string {
	siblings := tmpl.SectionItems(sectionID)
	if len(siblings) == 0 || siblings[0].ItemType != inspection.ItemTypeTextInput {
		return ""
	}
	return siblings[0].TextInputValue
}

// LatestAdminEditDate returns the newest admin edit timestamp, or 0.
func LatestAdminEditDate(item *inspection.Item) int64 {
	var latest int64
	for _, edit := range item.AdminEdits {
		latest = max(latest, edit.EditDate)
	}
	return latest
}

// uploadedPhotos drops photo entries that never finished uploading.
func uploadedPhotos(photos map[string]inspection.Photo) map[string]inspection.Photo {
	var out map[string]inspection.Photo
	for id, photo := range photos {
		if photo.DownloadURL == "" {
			continue
		}
		if out == nil {
			out = make(map[string]inspection.Photo)
		}
		out[id] = photo
	}
	return out
}
