package core

import (
	"fmt"

	"axiapac.com/backoffice/attendance/model"
	appcore "axiapac.com/backoffice/core"
	notification "axiapac.com/backoffice/notification/core"
	nmodel "axiapac.com/backoffice/notification/model"
	"axiapac.com/backoffice/utils"
	"gorm.io/gorm"
)

const (
	CategoryMark          = "attendance.mark"
	CategoryRecordDeleted = "attendance.record_deleted"
)

func markLabel(t model.MarkType) string {
	if t == model.CheckOut {
		return "salida"
	}
	return "entrada"
}

// markMessage tells the managers of the owner's area and every super-admin about a punch.
// The owner is never told about their own punch.
func markMessage(db *gorm.DB, a *model.Attendance, record *model.TimeRecord) (notification.Message, error) {
	var areaID *uint
	name := fmt.Sprintf("Usuario %d", a.UserID)
	if a.User != nil {
		areaID = a.User.AreaID
		name = a.User.Name
	}

	recipients, err := appcore.AreaManagersAndSuperAdmins(db, areaID)
	if err != nil {
		return notification.Message{Category: CategoryMark}, err
	}
	recipients = utils.Filter(recipients, func(id uint) bool { return id != a.UserID })

	return notification.Message{
		Recipients: recipients,
		Category:   CategoryMark,
		Title:      "Marcación de asistencia",
		Message:    fmt.Sprintf("%s registró %s a las %s", name, markLabel(record.Type), record.Timestamp.Format("15:04")),
		ActionURL:  utils.Ptr(fmt.Sprintf("/attendance/%d", a.ID)),
		Priority:   nmodel.PriorityNormal,
		Data: map[string]any{
			"attendance_id": a.ID,
			"record_id":     record.ID,
			"type":          record.Type,
			"date":          a.Date,
			"status":        a.Status,
		},
	}, nil
}

func deletedMessage(a *model.Attendance, record *model.TimeRecord) notification.Message {
	return notification.Message{
		Recipients: []uint{a.UserID},
		Category:   CategoryRecordDeleted,
		Title:      "Registro de asistencia eliminado",
		Message: fmt.Sprintf("Se eliminó tu registro de %s del %s a las %s",
			markLabel(record.Type), a.Date, record.Timestamp.Format("15:04")),
		ActionURL: utils.Ptr(fmt.Sprintf("/attendance/%d", a.ID)),
		Priority:  nmodel.PriorityHigh,
		Data: map[string]any{
			"attendance_id": a.ID,
			"record_id":     record.ID,
			"total_minutes": a.TotalMinutes,
		},
	}
}
