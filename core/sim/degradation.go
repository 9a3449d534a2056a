package sim

import (
	"math"

	"github.com/kilianp07/evdash/core/model"
)

const (
	// sohWearPerSOC is the SOH loss in percent per percent of SOC throughput.
	sohWearPerSOC = 0.0005
	// sohSampleKm is the odometer distance between two SOH samples.
	sohSampleKm = 50.0
)

// Degradation is the battery health output of one tick.
type Degradation struct {
	SOH    float64
	Cycles float64
	Wear   model.WearAccumulator
	Sample *model.SOHSample
}

// Degrade applies cycling wear for socDelta and records a health sample
// every sohSampleKm kilometres.
func Degrade(s model.Snapshot, socDelta, odometer, distKm, batteryTemp float64) Degradation {
	throughput := math.Abs(socDelta)
	soh := math.Max(model.MinSOH, s.PackSOH-throughput*sohWearPerSOC)
	soh = math.Min(soh, s.PackSOH)

	d := Degradation{
		SOH:    soh,
		Cycles: s.EquivalentFullCycles + throughput/100,
		Wear:   s.Wear,
	}
	d.Wear.BatteryTempSum += batteryTemp
	d.Wear.BatteryTempSamples++
	switch s.DriveMode {
	case model.ModeSports:
		d.Wear.SportsKm += distKm
	case model.ModeCity:
		d.Wear.CityKm += distKm
	default:
		d.Wear.EcoKm += distKm
	}

	if odometer-d.Wear.LastSampleOdometer < sohSampleKm {
		return d
	}

	sample := model.SOHSample{
		Odometer:       odometer,
		CycleCount:     d.Cycles,
		AvgBatteryTemp: d.Wear.BatteryTempSum / float64(d.Wear.BatteryTempSamples),
		SOH:            d.SOH,
	}
	sample.EcoPercent, sample.CityPercent, sample.SportsPercent = modeMix(d.Wear)
	d.Sample = &sample
	d.Wear = model.WearAccumulator{LastSampleOdometer: odometer}
	return d
}

// modeMix returns the share of distance driven in each mode, in percent.
func modeMix(w model.WearAccumulator) (eco, city, sports float64) {
	total := w.EcoKm + w.CityKm + w.SportsKm
	if total <= 0 {
		return 100, 0, 0
	}
	return w.EcoKm / total * 100, w.CityKm / total * 100, w.SportsKm / total * 100
}

// currentSOHSample describes the pack as it is now. It stands in for an
// empty SOH history when a forecast needs at least one entry.
func currentSOHSample(s model.Snapshot) model.SOHSample {
	avg := s.BatteryTemp
	if s.Wear.BatteryTempSamples > 0 {
		avg = s.Wear.BatteryTempSum / float64(s.Wear.BatteryTempSamples)
	}
	sample := model.SOHSample{
		Odometer:       s.Odometer,
		CycleCount:     s.EquivalentFullCycles,
		AvgBatteryTemp: avg,
		SOH:            s.PackSOH,
	}
	sample.EcoPercent, sample.CityPercent, sample.SportsPercent = modeMix(s.Wear)
	return sample
}
