package tracker

import (
	"math"
	"testing"
)

// floatsEqual compares slices of float64
func floatsEqual(a, b []float64, epsilon float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > epsilon {
			return false
		}
	}
	return true
}

// TestKalmanFilter steps the filter through initiate, predict and update and
// compares against values worked out by hand for the diagonal noise model
func TestKalmanFilter(t *testing.T) {
	kf := NewKalmanFilter()

	measurement := Xysr{100.0, 200.0, 5000.0, 0.5}

	mean, cov := kf.Initiate(measurement)

	expectedMeanInit := []float64{100.0, 200.0, 5000.0, 0.5, 0, 0, 0}

	if !floatsEqual(mean, expectedMeanInit, 1e-9) {
		t.Errorf("expected mean %v, got %v", expectedMeanInit, mean)
	}

	expectedDiagInit := []float64{10, 10, 10, 10, 10000, 10000, 10000}

	for i, want := range expectedDiagInit {
		if got := cov.At(i, i); math.Abs(got-want) > 1e-9 {
			t.Errorf("initial covariance[%d][%d] expected %v, got %v", i, i, want, got)
		}
	}

	kf.Predict(mean, &cov)

	// velocities are zero so the mean does not move
	if !floatsEqual(mean, expectedMeanInit, 1e-9) {
		t.Errorf("expected predicted mean %v, got %v", expectedMeanInit, mean)
	}

	expectedPredict := map[[2]int]float64{
		{0, 0}: 10011,
		{2, 2}: 10011,
		{3, 3}: 11,
		{0, 4}: 10000,
		{4, 0}: 10000,
		{4, 4}: 10000.01,
		{6, 6}: 10000.0001,
		{2, 6}: 10000,
	}

	for idx, want := range expectedPredict {
		if got := cov.At(idx[0], idx[1]); math.Abs(got-want) > 1e-6 {
			t.Errorf("predicted covariance%v expected %v, got %v", idx, want, got)
		}
	}

	// shift the center x by 5 pixels
	err := kf.Update(mean, &cov, Xysr{105.0, 200.0, 5000.0, 0.5})

	if err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	expectedMeanUpdate := []float64{
		100 + 5*10011.0/10012.0,
		200, 5000, 0.5,
		5 * 10000.0 / 10012.0,
		0, 0,
	}

	if !floatsEqual(mean, expectedMeanUpdate, 1e-6) {
		t.Errorf("expected updated mean %v, got %v", expectedMeanUpdate, mean)
	}

	if got, want := cov.At(0, 0), 10011.0/10012.0; math.Abs(got-want) > 1e-6 {
		t.Errorf("updated covariance[0][0] expected %v, got %v", want, got)
	}
}

func TestKalmanFilterTracksConstantVelocity(t *testing.T) {
	kf := NewKalmanFilter()

	box := NewBox(100, 100, 200, 160)
	mean, cov := kf.Initiate(box.Xysr())

	for i := 1; i <= 20; i++ {
		kf.Predict(mean, &cov)

		next := NewBox(box[0]+float64(i)*8, box[1], box[2]+float64(i)*8, box[3])

		if err := kf.Update(mean, &cov, next.Xysr()); err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
	}

	// the x velocity converges on the true motion
	if math.Abs(mean[4]-8) > 0.5 {
		t.Errorf("expected x velocity near 8, got %v", mean[4])
	}

	if math.Abs(mean[5]) > 0.5 {
		t.Errorf("expected y velocity near 0, got %v", mean[5])
	}
}
