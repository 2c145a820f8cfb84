package models

import (
	"maps"
	"slices"

	inspection "propcheck/internal/inspection/models"
)

// Deficient item states known to this service. Rules may name additional
// states; those are carried through untouched.
const (
	StateRequiresAction         = "requires-action"
	StatePending                = "pending"
	StateRequiresProgressUpdate = "requires-progress-update"
	StateOverdue                = "overdue"
)

// DeficientItem is the materialized record of one deficient inspection item.
// Empty fields are omitted from the JSON document, except the selection index
// (0 is a real answer) and the photo presence flag.
type DeficientItem struct {
	ID         string `json:"id,omitempty"`
	Property   string `json:"property,omitempty"`
	Inspection string `json:"inspection,omitempty"`
	Item       string `json:"item,omitempty"`

	State        string              `json:"state,omitempty"`
	StateHistory []StateHistoryEntry `json:"stateHistory,omitempty"`

	CurrentStartDate           int64                     `json:"currentStartDate,omitempty"`
	CurrentDueDate             int64                     `json:"currentDueDate,omitempty"`
	StartDates                 map[string]StartDate      `json:"startDates,omitempty"`
	DueDates                   map[string]DueDate        `json:"dueDates,omitempty"`
	CurrentPlanToFix           string                    `json:"currentPlanToFix,omitempty"`
	PlansToFix                 map[string]Note           `json:"plansToFix,omitempty"`
	CurrentResponsibilityGroup string                    `json:"currentResponsibilityGroup,omitempty"`
	ResponsibilityGroups       map[string]Note           `json:"responsibilityGroups,omitempty"`
	ProgressNotes              map[string]Note           `json:"progressNotes,omitempty"`
	CurrentReasonIncomplete    string                    `json:"currentReasonIncomplete,omitempty"`
	ReasonsIncomplete          map[string]Note           `json:"reasonsIncomplete,omitempty"`
	CompletedPhotos            map[string]CompletedPhoto `json:"completedPhotos,omitempty"`
	WillRequireProgressNote    bool                      `json:"willRequireProgressNote,omitempty"`

	ItemScore               float64                         `json:"itemScore,omitempty"`
	ItemMainInputSelection  int                             `json:"itemMainInputSelection"`
	ItemMainInputType       string                          `json:"itemMainInputType,omitempty"`
	ItemTitle               string                          `json:"itemTitle,omitempty"`
	ItemInspectorNotes      string                          `json:"itemInspectorNotes,omitempty"`
	ItemAdminEdits          map[string]inspection.AdminEdit `json:"itemAdminEdits,omitempty"`
	ItemPhotosData          map[string]inspection.Photo     `json:"itemPhotosData,omitempty"`
	HasItemPhotoData        bool                            `json:"hasItemPhotoData"`
	ItemDataLastUpdatedDate int64                           `json:"itemDataLastUpdatedDate,omitempty"`

	SectionTitle    string `json:"sectionTitle,omitempty"`
	SectionSubtitle string `json:"sectionSubtitle,omitempty"`
	SectionType     string `json:"sectionType,omitempty"`

	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
	Archive   bool  `json:"archive,omitempty"`
}

type StateHistoryEntry struct {
	State     string `json:"state"`
	StartDate int64  `json:"startDate,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	User      string `json:"user,omitempty"`
}

type StartDate struct {
	StartDate int64 `json:"startDate"`
	CreatedAt int64 `json:"createdAt"`
}

type DueDate struct {
	DueDate   int64  `json:"dueDate"`
	CreatedAt int64  `json:"createdAt"`
	User      string `json:"user,omitempty"`
}

// Note is a user-authored text entry (plan to fix, progress note, ...).
type Note struct {
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
	User      string `json:"user,omitempty"`
}

type CompletedPhoto struct {
	DownloadURL string `json:"downloadURL"`
	Caption     string `json:"caption,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	User        string `json:"user,omitempty"`
}

// ItemID is the source inspection item id, the logical key used by the diff.
func (d *DeficientItem) ItemID() string {
	if d == nil {
		return ""
	}
	return d.Item
}

// Ref returns the repository reference of d.
func (d *DeficientItem) Ref() Ref {
	return Ref{PropertyID: d.Property, ID: d.ID}
}

// Clone returns a deep copy of d.
func (d *DeficientItem) Clone() *DeficientItem {
	if d == nil {
		return nil
	}
	c := *d
	c.StateHistory = slices.Clone(d.StateHistory)
	c.StartDates = maps.Clone(d.StartDates)
	c.DueDates = maps.Clone(d.DueDates)
	c.PlansToFix = maps.Clone(d.PlansToFix)
	c.ResponsibilityGroups = maps.Clone(d.ResponsibilityGroups)
	c.ProgressNotes = maps.Clone(d.ProgressNotes)
	c.ReasonsIncomplete = maps.Clone(d.ReasonsIncomplete)
	c.CompletedPhotos = maps.Clone(d.CompletedPhotos)
	c.ItemAdminEdits = maps.Clone(d.ItemAdminEdits)
	c.ItemPhotosData = maps.Clone(d.ItemPhotosData)
	return &c
}

// TransitionTo moves d to state, recording the change in StateHistory.
// It reports false when d is already in state.
func (d *DeficientItem) TransitionTo(state string, now int64, user string) bool {
	if d.State == state {
		return false
	}
	d.State = state
	d.StateHistory = append(d.StateHistory, StateHistoryEntry{
		State:     state,
		StartDate: d.CurrentStartDate,
		CreatedAt: now,
		User:      user,
	})
	d.UpdatedAt = now
	return true
}

// Ref names a deficient item inside a property.
type Ref struct {
	PropertyID string
	ID         string
}

// Location is where the operational store currently holds a deficient item.
type Location int

const (
	LocationNone Location = iota
	LocationActive
	LocationArchived
)

func (l Location) String() string {
	switch l {
	case LocationActive:
		return "active"
	case LocationArchived:
		return "archived"
	default:
		return "none"
	}
}

// ArchiveResult reports the outcome of a toggle archive request.
type ArchiveResult struct {
	Archived            bool
	// Changed is false when the request matched the current location.
	Changed             bool
	// ExternalCardChanged holds the ticket board card id archived or restored.
	ExternalCardChanged string
}
