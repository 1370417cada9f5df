package recon

import "github.com/sells-group/recon-cli/internal/model"

// evidencePair lists the fields that may share one highlighted region.
var evidencePair = map[model.FieldKey]bool{
	model.FieldAmount:   true,
	model.FieldQuantity: true,
}

// CoordinateResolver locates the page region a field value was read from.
type CoordinateResolver struct {
	data *model.Dataset
}

// NewCoordinateResolver returns a resolver over data.
func NewCoordinateResolver(data *model.Dataset) *CoordinateResolver {
	return &CoordinateResolver{data: data}
}

// Resolve returns the bounding box for field on the source's record of
// documentID, or nil when nothing was recorded. For amount and quantity a
// shared evidence region wins over the field's own coordinates. A nil result
// means no evidence is available; it is not an error.
func (r *CoordinateResolver) Resolve(documentID string, field model.FieldKey, src model.Source) *model.Coordinates {
	rec := r.data.Record(documentID, src)
	if rec == nil {
		return nil
	}
	if evidencePair[field] && rec.Evidence != nil {
		c := *rec.Evidence
		return &c
	}
	if c, ok := rec.Coordinates[field]; ok {
		return &c
	}
	return nil
}
