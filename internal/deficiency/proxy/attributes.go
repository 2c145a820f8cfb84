package proxy

import (
	"propcheck/internal/deficiency/models"
	inspection "propcheck/internal/inspection/models"
)

// Attribute names as they appear in the deficient item document.
const (
	AttrItemScore               = "itemScore"
	AttrItemDataLastUpdatedDate = "itemDataLastUpdatedDate"
)

type attribute struct {
	get func(*models.DeficientItem) any
	set func(*models.DeficientItem, any) bool
}

func field[T any](ptr func(*models.DeficientItem) *T) attribute {
	return attribute{
		get: func(d *models.DeficientItem) any { return *ptr(d) },
		set: func(d *models.DeficientItem, v any) bool {
			typed, ok := v.(T)
			if ok {
				*ptr(d) = typed
			}
			return ok
		},
	}
}

// attributes is every deficient item field that mirrors inspection state.
// Workflow fields (state, plans, due dates) are deliberately absent.
var attributes = map[string]attribute{
	"itemAdminEdits":            field(func(d *models.DeficientItem) *map[string]inspection.AdminEdit { return &d.ItemAdminEdits }),
	"itemInspectorNotes":        field(func(d *models.DeficientItem) *string { return &d.ItemInspectorNotes }),
	"itemMainInputSelection":    field(func(d *models.DeficientItem) *int { return &d.ItemMainInputSelection }),
	"itemMainInputType":         field(func(d *models.DeficientItem) *string { return &d.ItemMainInputType }),
	"itemPhotosData":            field(func(d *models.DeficientItem) *map[string]inspection.Photo { return &d.ItemPhotosData }),
	"hasItemPhotoData":          field(func(d *models.DeficientItem) *bool { return &d.HasItemPhotoData }),
	AttrItemScore:               field(func(d *models.DeficientItem) *float64 { return &d.ItemScore }),
	"itemTitle":                 field(func(d *models.DeficientItem) *string { return &d.ItemTitle }),
	"sectionSubtitle":           field(func(d *models.DeficientItem) *string { return &d.SectionSubtitle }),
	"sectionTitle":              field(func(d *models.DeficientItem) *string { return &d.SectionTitle }),
	"sectionType":               field(func(d *models.DeficientItem) *string { return &d.SectionType }),
	AttrItemDataLastUpdatedDate: field(func(d *models.DeficientItem) *int64 { return &d.ItemDataLastUpdatedDate }),
}
