package data

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ZiyadSefiri/Car-Check-Service/err"
	"github.com/ZiyadSefiri/Car-Check-Service/models"
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type carRow struct {
	CarID        int64  `gorm:"column:car_id;primaryKey;autoIncrement"`
	Model        string `gorm:"column:model;size:100;not null"`
	LicensePlate string `gorm:"column:license_plate;size:20;not null;uniqueIndex"`
}

func (carRow) TableName() string { return "cars" }

type reservationRow struct {
	ReservationID   int64     `gorm:"column:reservation_id;primaryKey;autoIncrement"`
	CarID           int64     `gorm:"column:car_id;not null;index:idx_car_date"`
	UserID          string    `gorm:"column:user_id;size:64;not null;index"`
	ReservationDate time.Time `gorm:"column:reservation_date;not null;index:idx_car_date"`
}

func (reservationRow) TableName() string { return "reservations" }

func (r *carRow) model() *models.Resource {
	return &models.Resource{
		ID:           r.CarID,
		Model:        r.Model,
		LicensePlate: r.LicensePlate,
	}
}

func (r *reservationRow) model() *models.Reservation {
	return &models.Reservation{
		ID:          r.ReservationID,
		ResourceID:  r.CarID,
		RequesterID: r.UserID,
		Start:       r.ReservationDate.UTC(),
	}
}

// SQL is a DataManager backed by the relational store shared by the
// services.
type SQL struct {
	db *gorm.DB
	// MySQL supports SELECT ... FOR UPDATE. SQLite serializes writers on its
	// own and rejects the clause.
	lockRows bool
}

// Open connects with the named driver ("mysql" or "sqlite").
func Open(driver, dsn string, migrate bool) (*SQL, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Wrapf(err.InvalidArgument, "unknown database driver %q", driver)
	}

	db, oerr := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if oerr != nil {
		return nil, errors.Wrapf(err.StoreUnavailable, "open %s: %v", driver, oerr)
	}

	s := NewSQL(db)
	if migrate {
		if merr := s.Migrate(); merr != nil {
			return nil, merr
		}
	}
	return s, nil
}

func NewSQL(db *gorm.DB) *SQL {
	return &SQL{
		db:       db,
		lockRows: db.Dialector.Name() == "mysql",
	}
}

func (s *SQL) Migrate() error {
	if merr := s.db.AutoMigrate(&carRow{}, &reservationRow{}); merr != nil {
		return unavailable("migrate", merr)
	}
	return nil
}

func (s *SQL) Close() error {
	sqlDB, derr := s.db.DB()
	if derr != nil {
		return unavailable("close", derr)
	}
	return sqlDB.Close()
}

func (s *SQL) AddResource(ctx context.Context, model, plate string) (*models.Resource, error) {
	row := carRow{Model: model, LicensePlate: plate}
	if cerr := s.db.WithContext(ctx).Create(&row).Error; cerr != nil {
		if errors.Is(cerr, gorm.ErrDuplicatedKey) {
			return nil, errors.Wrapf(err.Conflict, "license plate %s already registered", plate)
		}
		return nil, unavailable("add car", cerr)
	}
	return row.model(), nil
}

func (s *SQL) GetResource(ctx context.Context, id int64) (*models.Resource, error) {
	return s.getResource(s.db.WithContext(ctx), id)
}

func (s *SQL) getResource(tx *gorm.DB, id int64) (*models.Resource, error) {
	var row carRow
	if ferr := tx.First(&row, "car_id = ?", id).Error; ferr != nil {
		if errors.Is(ferr, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(err.ResourceNotFound, "car %d", id)
		}
		return nil, unavailable("get car", ferr)
	}
	return row.model(), nil
}

func (s *SQL) FindResource(ctx context.Context, query string) (*models.Resource, error) {
	// an all-digit query is tried as an ID first, then as a plate
	if id, perr := strconv.ParseInt(strings.TrimSpace(query), 10, 64); perr == nil {
		r, gerr := s.GetResource(ctx, id)
		if !errors.Is(gerr, err.ResourceNotFound) {
			return r, gerr
		}
	}

	var row carRow
	ferr := s.db.WithContext(ctx).
		Where("UPPER(REPLACE(license_plate, ' ', '')) = ?", models.PlateKey(query)).
		First(&row).Error
	if ferr != nil {
		if errors.Is(ferr, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(err.ResourceNotFound, "car %q", query)
		}
		return nil, unavailable("find car", ferr)
	}
	return row.model(), nil
}

func (s *SQL) AllResources(ctx context.Context) ([]*models.Resource, error) {
	var rows []carRow
	if ferr := s.db.WithContext(ctx).Order("car_id").Find(&rows).Error; ferr != nil {
		return nil, unavailable("list cars", ferr)
	}

	ret := make([]*models.Resource, 0, len(rows))
	for i := range rows {
		ret = append(ret, rows[i].model())
	}
	return ret, nil
}

// ReservationsFor reads the car and its reservations inside one read
// transaction so the pair is a consistent snapshot.
func (s *SQL) ReservationsFor(ctx context.Context, resourceID int64) ([]*models.Reservation, error) {
	var ret []*models.Reservation
	terr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, gerr := s.getResource(tx, resourceID); gerr != nil {
			return gerr
		}
		var rerr error
		ret, rerr = findReservations(tx.Where("car_id = ?", resourceID))
		return rerr
	})
	if terr != nil {
		return nil, txErr("read reservations", terr)
	}
	return ret, nil
}

func (s *SQL) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	var row reservationRow
	if ferr := s.db.WithContext(ctx).First(&row, "reservation_id = ?", id).Error; ferr != nil {
		if errors.Is(ferr, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(err.ReservationNotFound, "reservation %d", id)
		}
		return nil, unavailable("get reservation", ferr)
	}
	return row.model(), nil
}

func (s *SQL) ReservationsForRequester(ctx context.Context, requesterID string) ([]*models.Reservation, error) {
	return findReservations(s.db.WithContext(ctx).Where("user_id = ?", requesterID))
}

func (s *SQL) ReservationsBetween(ctx context.Context, from, to time.Time) ([]*models.Reservation, error) {
	return findReservations(s.db.WithContext(ctx).
		Where("reservation_date >= ? AND reservation_date < ?", from.UTC(), to.UTC()))
}

func findReservations(q *gorm.DB) ([]*models.Reservation, error) {
	var rows []reservationRow
	if ferr := q.Order("reservation_date, reservation_id").Find(&rows).Error; ferr != nil {
		return nil, unavailable("list reservations", ferr)
	}

	ret := make([]*models.Reservation, 0, len(rows))
	for i := range rows {
		ret = append(ret, rows[i].model())
	}
	return ret, nil
}

// CreateReservation locks the car row, checks for an overlapping slot and
// inserts within a single transaction.
func (s *SQL) CreateReservation(ctx context.Context, resourceID int64, requesterID string, start time.Time) (*models.Reservation, error) {
	if requesterID == "" {
		return nil, errors.Wrap(err.InvalidArgument, "requester is required")
	}
	start = start.UTC()

	var created *models.Reservation
	terr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := tx
		if s.lockRows {
			lock = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if _, gerr := s.getResource(lock, resourceID); gerr != nil {
			return gerr
		}

		// Every slot has the same length, so two overlap iff their starts are
		// less than one slot apart.
		var clashes []reservationRow
		ferr := tx.Where("car_id = ? AND reservation_date > ? AND reservation_date < ?",
			resourceID, start.Add(-models.SlotDuration), start.Add(models.SlotDuration)).
			Limit(1).Find(&clashes).Error
		if ferr != nil {
			return unavailable("check overlap", ferr)
		}
		if len(clashes) > 0 {
			return errors.Wrapf(err.Conflict, "car %d is reserved from %s", resourceID, clashes[0].ReservationDate.UTC().Format(time.RFC3339))
		}

		row := reservationRow{
			CarID:           resourceID,
			UserID:          requesterID,
			ReservationDate: start,
		}
		if cerr := tx.Create(&row).Error; cerr != nil {
			return unavailable("insert reservation", cerr)
		}
		created = row.model()
		return nil
	})
	if terr != nil {
		return nil, txErr("create reservation", terr)
	}
	return created, nil
}

func (s *SQL) DeleteReservation(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&reservationRow{}, "reservation_id = ?", id)
	if res.Error != nil {
		return unavailable("delete reservation", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(err.ReservationNotFound, "reservation %d", id)
	}
	return nil
}

// unavailable reports a driver failure as StoreUnavailable. Context
// cancellation and deadlines are passed through so callers can tell them
// apart.
func unavailable(op string, cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return errors.Wrap(cause, op)
	}
	return errors.Wrapf(err.StoreUnavailable, "%s: %v", op, cause)
}

// txErr keeps the errors returned from inside a transaction body and wraps
// the rest (begin and commit failures) with unavailable.
func txErr(op string, terr error) error {
	for _, known := range []error{err.ResourceNotFound, err.Conflict, err.StoreUnavailable, err.InvalidArgument, context.Canceled, context.DeadlineExceeded} {
		if errors.Is(terr, known) {
			return terr
		}
	}
	return unavailable(op, terr)
}
