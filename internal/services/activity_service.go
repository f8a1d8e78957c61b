package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/models"
)

// EventStore is the event persistence used by ActivityService
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	ListRecent(ctx context.Context, limit, offset int) ([]models.EventView, error)
	ListByRFID(ctx context.Context, rfid string, limit int) ([]models.EventView, error)
	Update(ctx context.Context, event *models.Event, relinkDay bool) error
	Delete(ctx context.Context, id int64) error
}

// AlertStore is the alert persistence used by ActivityService
type AlertStore interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id int64) (*models.Alert, error)
	List(ctx context.Context, status *models.AlertStatus) ([]models.AlertView, error)
	Update(ctx context.Context, alert *models.Alert) error
	Delete(ctx context.Context, id int64, force bool) error
}

// ActivityService is the administrative surface over events and alerts
type ActivityService struct {
	events EventStore
	alerts AlertStore
	logger *logrus.Logger
	now    func() time.Time
}

// NewActivityService creates a new ActivityService
func NewActivityService(events EventStore, alerts AlertStore, logger *logrus.Logger) *ActivityService {
	return &ActivityService{events: events, alerts: alerts, logger: logger, now: time.Now}
}

// ========== Events ==========

// LogEvent records a manual event; its calendar day is resolved from the timestamp
func (s *ActivityService) LogEvent(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	event, err := req.ToEvent(s.now())
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	if event.AlertID != nil {
		if _, err := s.GetAlert(ctx, *event.AlertID); err != nil {
			return nil, err
		}
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.EventType}).Info("Event logged")
	return event, nil
}

func (s *ActivityService) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperr.NotFound("event", id)
	}
	return event, nil
}

func (s *ActivityService) ListEvents(ctx context.Context, limit, offset int) ([]models.EventView, error) {
	return s.events.ListRecent(ctx, limit, offset)
}

func (s *ActivityService) ListEmployeeEvents(ctx context.Context, rfid string, limit int) ([]models.EventView, error) {
	return s.events.ListByRFID(ctx, rfid, limit)
}

// UpdateEvent merges the supplied fields and re-links the calendar day when the timestamp moves
func (s *ActivityService) UpdateEvent(ctx context.Context, id int64, req *models.UpdateEventRequest) (*models.Event, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	timestampChanged, err := req.Apply(event)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	if err := s.events.Update(ctx, event, timestampChanged); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *ActivityService) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("event_id", id).Info("Event deleted")
	return nil
}

// ========== Alerts ==========

func (s *ActivityService) CreateAlert(ctx context.Context, req *models.CreateAlertRequest) (*models.Alert, error) {
	alert, err := req.ToAlert(s.now())
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"alert_id": alert.ID, "alert_type": alert.AlertType}).Info("Alert created")
	return alert, nil
}

func (s *ActivityService) GetAlert(ctx context.Context, id int64) (*models.Alert, error) {
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, apperr.NotFound("alert", id)
	}
	return alert, nil
}

// ListAlerts returns every alert, or only those in status when it is not blank
func (s *ActivityService) ListAlerts(ctx context.Context, status string) ([]models.AlertView, error) {
	if models.Blank(&status) {
		return s.alerts.List(ctx, nil)
	}
	parsed, err := models.ParseAlertStatus(status)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	return s.alerts.List(ctx, &parsed)
}

// UpdateAlert changes type, description or status; any status may follow any other
func (s *ActivityService) UpdateAlert(ctx context.Context, id int64, req *models.UpdateAlertRequest) (*models.Alert, error) {
	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := alert.Status
	if err := req.Apply(alert); err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	if previous != alert.Status {
		s.logger.WithFields(logrus.Fields{
			"alert_id": id,
			"from":     previous,
			"to":       alert.Status,
		}).Info("Alert status changed")
	}
	return alert, nil
}

// DeleteAlert refuses while events link to the alert unless force is set, in
// which case the links are cleared first
func (s *ActivityService) DeleteAlert(ctx context.Context, id int64, force bool) error {
	if err := s.alerts.Delete(ctx, id, force); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"alert_id": id, "force": force}).Info("Alert deleted")
	return nil
}
