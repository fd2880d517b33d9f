package inventory

import "time"

// Calendar normaliza instantes a fecha civil en la zona horaria de operación.
// Todas las fechas de negocio se representan como medianoche UTC del día civil,
// que es como pgx devuelve las columnas DATE.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar construye el calendario. now nil usa time.Now.
func NewCalendar(loc *time.Location, now func() time.Time) Calendar {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return Calendar{loc: loc, now: now}
}

// Today devuelve el día civil actual en la zona de operación.
func (c Calendar) Today() time.Time {
	t := c.now().In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntil días civiles entre hoy y d (negativo si d ya pasó).
func (c Calendar) DaysUntil(d time.Time) int {
	return int(DateOf(d).Sub(c.Today()).Hours() / 24)
}

// IsToday indica si d (opcional) corresponde al día civil actual.
func (c Calendar) IsToday(d *time.Time) bool {
	if d == nil || d.IsZero() {
		return false
	}
	return DateOf(*d).Equal(c.Today())
}

// DateOf trunca t a su fecha civil (en su propia zona) expresada como medianoche UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate interpreta una fecha YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
