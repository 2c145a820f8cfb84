package models

import "sort"

// Text input items carry their value in TextInputValue.
const ItemTypeTextInput = "text_input"

const (
	SectionTypeSingle = "single"
	SectionTypeMulti  = "multi"
)

// Inspection is a property inspection as read from the inspection source.
type Inspection struct {
	ID                  string    `json:"id"`
	Property            string    `json:"property"`
	InspectionCompleted bool      `json:"inspectionCompleted"`
	CreationDate        int64     `json:"creationDate"`
	UpdatedLastDate     int64     `json:"updatedLastDate"`
	Score               float64   `json:"score"`
	Template            *Template `json:"template,omitempty"`
}

// TracksDeficientItems reports whether the inspection feeds deficient items.
func (i *Inspection) TracksDeficientItems() bool {
	return i != nil && i.InspectionCompleted && i.Template != nil && i.Template.TrackDeficientItems
}

// Template is the inspection's embedded questionnaire.
type Template struct {
	TrackDeficientItems bool                `json:"trackDeficientItems"`
	Items               map[string]*Item    `json:"items,omitempty"`
	Sections            map[string]*Section `json:"sections,omitempty"`
}

// SectionItems returns the items of sectionID ordered by Index.
func (t *Template) SectionItems(sectionID string) []*Item {
	var items []*Item
	for _, item := range t.Items {
		if item != nil && item.SectionID == sectionID {
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].Index != items[b].Index {
			return items[a].Index < items[b].Index
		}
		return items[a].ID < items[b].ID
	})
	return items
}

type Section struct {
	ID          string `json:"id"`
	Index       int    `json:"index"`
	Title       string `json:"title"`
	SectionType string `json:"sectionType,omitempty"`
}

// Item is one question of a template.
type Item struct {
	ID                  string               `json:"id"`
	SectionID           string               `json:"sectionId"`
	Index               int                  `json:"index"`
	ItemType            string               `json:"itemType,omitempty"`
	MainInputType       string               `json:"mainInputType,omitempty"`
	MainInputSelection  int                  `json:"mainInputSelection"`
	MainInputZeroValue  *float64             `json:"mainInputZeroValue,omitempty"`
	MainInputOneValue   *float64             `json:"mainInputOneValue,omitempty"`
	MainInputTwoValue   *float64             `json:"mainInputTwoValue,omitempty"`
	MainInputThreeValue *float64             `json:"mainInputThreeValue,omitempty"`
	MainInputFourValue  *float64             `json:"mainInputFourValue,omitempty"`
	Title               string               `json:"title,omitempty"`
	TextInputValue      string               `json:"textInputValue,omitempty"`
	InspectorNotes      string               `json:"inspectorNotes,omitempty"`
	AdminEdits          map[string]AdminEdit `json:"adminEdits,omitempty"`
	PhotosData          map[string]Photo     `json:"photosData,omitempty"`
}

// SelectionValue returns the score mapped to the item's current selection.
// Selections without a mapping score zero.
func (i *Item) SelectionValue() float64 {
	var v *float64
	switch i.MainInputSelection {
	case 0:
		v = i.MainInputZeroValue
	case 1:
		v = i.MainInputOneValue
	case 2:
		v = i.MainInputTwoValue
	case 3:
		v = i.MainInputThreeValue
	case 4:
		v = i.MainInputFourValue
	}
	if v == nil {
		return 0
	}
	return *v
}

type AdminEdit struct {
	EditDate  int64  `json:"edit_date"`
	AdminName string `json:"admin_name,omitempty"`
	AdminUID  string `json:"admin_uid,omitempty"`
	Action    string `json:"action,omitempty"`
}

type Photo struct {
	DownloadURL string `json:"downloadURL,omitempty"`
	Caption     string `json:"caption,omitempty"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// WriteEvent is a trigger notification for an inspection create, update or
// delete. After is nil for deletes, Before is nil for creates.
type WriteEvent struct {
	InspectionID string      `json:"inspectionId"`
	Before       *Inspection `json:"before,omitempty"`
	After        *Inspection `json:"after,omitempty"`
}

// Deleted reports whether the event removed the inspection.
func (e WriteEvent) Deleted() bool {
	return e.After == nil
}

// PropertyID returns the owning property from whichever snapshot is present.
func (e WriteEvent) PropertyID() string {
	if e.After != nil && e.After.Property != "" {
		return e.After.Property
	}
	if e.Before != nil {
		return e.Before.Property
	}
	return ""
}
