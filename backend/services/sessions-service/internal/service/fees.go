package service

// Facility tariff: a flat rate per started hour.
const (
	defaultHourlyRate = 5.00
	secondsPerHour    = 3600
)

// quoteFee rounds the elapsed time up to whole hours and applies the hourly
// rate. A partial hour bills as a full hour; a zero-length stay bills nothing.
func quoteFee(durationSeconds int64, rate float64) (hours int64, amount float64) {
	if durationSeconds <= 0 {
		return 0, 0
	}
	hours = (durationSeconds + secondsPerHour - 1) / secondsPerHour
	return hours, float64(hours) * rate
}
