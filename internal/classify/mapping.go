package classify

import (
	"strings"

	"github.com/civicmirror/civic-backend/internal/models"
)

// labelToType — соответствие меток модели категориям обращений.
var labelToType = map[string]models.ReportType{
	"garbage":     models.ReportTypeGarbage,
	"pothole":     models.ReportTypeLabour,
	"streetlight": models.ReportTypeElectrician,
	"water_leak":  models.ReportTypePlumber,
}

// MapLabel переводит метку классификатора в категорию обращения.
// Незнакомые метки модели сводятся к miscellaneous — это фолбэк именно для
// выхода классификатора, подсказки пользователя так не обрезаются.
func MapLabel(label string) models.ReportType {
	if t, ok := labelToType[strings.ToLower(strings.TrimSpace(label))]; ok {
		return t
	}
	return models.ReportTypeMiscellaneous
}
