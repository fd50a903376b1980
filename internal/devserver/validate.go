package devserver

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/novelbell/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// notificationRequest is the body of the seed endpoint.
type notificationRequest struct {
	Type      model.NotificationType      `json:"type" validate:"omitempty,oneof=new_chapter comment_reply system_announcement"`
	Title     string                      `json:"title" validate:"required,max=200"`
	Message   string                      `json:"message" validate:"max=2000"`
	Link      string                      `json:"link" validate:"max=500"`
	IsRead    bool                        `json:"isRead"`
	CreatedAt time.Time                   `json:"createdAt"`
	Metadata  *model.NotificationMetadata `json:"metadata"`
}

func (r notificationRequest) toModel() model.Notification {
	n := model.Notification{
		Type:      r.Type,
		Title:     r.Title,
		Message:   r.Message,
		Link:      r.Link,
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt,
		Metadata:  r.Metadata,
	}
	if n.Type == "" {
		n.Type = model.NotificationNewChapter
	}
	return n
}

// announcementRequest is the body of the admin broadcast endpoint.
type announcementRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=2000"`
	Link    string `json:"link" validate:"max=500"`
}

// validateRequest returns a readable message for the first failing field.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		first := vErrs[0]
		if first.Tag() == "required" {
			return fmt.Errorf("%s is required", first.Field())
		}
		return fmt.Errorf("%s failed rule %s", first.Field(), first.Tag())
	}
	return err
}
