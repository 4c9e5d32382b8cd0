package tracker

import (
	"errors"
	"fmt"
	"gonum.org/v1/gonum/mat"
)

const (
	// stateDim is the size of the state vector
	// (u, v, s, r, u', v', s') being center, area, aspect ratio and the
	// velocities of center and area
	stateDim = 7
	// measureDim is the size of the measurement vector (u, v, s, r)
	measureDim = 4
)

// StateMean represents a 1x7 state vector
type StateMean []float64

// StateCov represents a 7x7 state covariance matrix
type StateCov struct {
	*mat.Dense
}

// KalmanFilter is a constant velocity Kalman filter over the bounding box
// center, area and aspect ratio. The aspect ratio is treated as constant
type KalmanFilter struct {
	// motionMat is the state transition matrix F
	motionMat *mat.Dense
	// updateMat is the measurement matrix H
	updateMat *mat.Dense
	// processNoise is the process noise covariance Q
	processNoise *mat.Dense
	// measurementNoise is the measurement noise covariance R
	measurementNoise *mat.Dense
	// initialCov is the diagonal of the covariance given to a new track
	initialCov []float64
}

// NewKalmanFilter initializes and returns a new KalmanFilter with the noise
// model used by SORT
func NewKalmanFilter() *KalmanFilter {

	motionMat := mat.NewDense(stateDim, stateDim, nil)

	for i := 0; i < stateDim; i++ {
		motionMat.Set(i, i, 1)
	}

	// position and area advance by their velocity each frame
	for i := 0; i < 3; i++ {
		motionMat.Set(i, measureDim+i, 1)
	}

	updateMat := mat.NewDense(measureDim, stateDim, nil)

	for i := 0; i < measureDim; i++ {
		updateMat.Set(i, i, 1)
	}

	// area and aspect ratio measurements are noisier than the center
	measurementNoise := mat.NewDense(measureDim, measureDim, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 10, 0,
		0, 0, 0, 10,
	})

	processNoise := mat.NewDense(stateDim, stateDim, nil)
	noise := []float64{1, 1, 1, 1, 0.01, 0.01, 0.0001}

	for i, q := range noise {
		processNoise.Set(i, i, q)
	}

	return &KalmanFilter{
		motionMat:        motionMat,
		updateMat:        updateMat,
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
		// high uncertainty given to the unobserved initial velocities
		initialCov: []float64{10, 10, 10, 10, 10000, 10000, 10000},
	}
}

// Initiate creates the state mean and covariance for a new track from its
// first measurement
func (kf *KalmanFilter) Initiate(measurement Xysr) (StateMean, StateCov) {

	mean := make(StateMean, stateDim)
	copy(mean[:measureDim], measurement[:])

	cov := mat.NewDense(stateDim, stateDim, nil)

	for i, v := range kf.initialCov {
		cov.Set(i, i, v)
	}

	return mean, StateCov{cov}
}

// Predict advances the state mean and covariance by one time step
func (kf *KalmanFilter) Predict(mean StateMean, covariance *StateCov) {

	meanVec := mat.NewVecDense(stateDim, nil)
	meanVec.MulVec(kf.motionMat, mat.NewVecDense(stateDim, mean))

	for i := 0; i < stateDim; i++ {
		mean[i] = meanVec.AtVec(i)
	}

	// P = F P F' + Q
	cov := mat.NewDense(stateDim, stateDim, nil)
	cov.Mul(kf.motionMat, covariance.Dense)
	cov.Mul(cov, kf.motionMat.T())
	cov.Add(cov, kf.processNoise)

	covariance.Dense = cov
}

// Update corrects the state mean and covariance toward the given measurement
func (kf *KalmanFilter) Update(mean StateMean, covariance *StateCov,
	measurement Xysr) error {

	projectedMean, projectedCov := kf.project(mean, covariance)

	chol := mat.Cholesky{}

	if ok := chol.Factorize(projectedCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// K = P H' S^-1, solved as S K' = H P
	pht := mat.NewDense(stateDim, measureDim, nil)
	pht.Mul(covariance.Dense, kf.updateMat.T())

	var gainT mat.Dense
	err := chol.SolveTo(&gainT, pht.T())

	if err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	kalmanGain := gainT.T()

	innovation := mat.NewVecDense(measureDim, nil)

	for i := 0; i < measureDim; i++ {
		innovation.SetVec(i, measurement[i]-projectedMean[i])
	}

	correction := mat.NewVecDense(stateDim, nil)
	correction.MulVec(kalmanGain, innovation)

	for i := 0; i < stateDim; i++ {
		mean[i] += correction.AtVec(i)
	}

	// Joseph form keeps the covariance symmetric positive definite
	// P = (I - K H) P (I - K H)' + K R K'
	ikh := mat.NewDense(stateDim, stateDim, nil)
	ikh.Mul(kalmanGain, kf.updateMat)

	for i := 0; i < stateDim; i++ {
		for j := 0; j < stateDim; j++ {
			v := -ikh.At(i, j)
			if i == j {
				v += 1
			}
			ikh.Set(i, j, v)
		}
	}

	newCov := mat.NewDense(stateDim, stateDim, nil)
	newCov.Mul(ikh, covariance.Dense)
	newCov.Mul(newCov, ikh.T())

	kr := mat.NewDense(stateDim, measureDim, nil)
	kr.Mul(kalmanGain, kf.measurementNoise)

	krk := mat.NewDense(stateDim, stateDim, nil)
	krk.Mul(kr, kalmanGain.T())

	newCov.Add(newCov, krk)
	covariance.Dense = newCov

	return nil
}

// project projects the state mean and covariance to measurement space
func (kf *KalmanFilter) project(mean StateMean,
	covariance *StateCov) ([]float64, *mat.SymDense) {

	projected := mat.NewVecDense(measureDim, nil)
	projected.MulVec(kf.updateMat, mat.NewVecDense(stateDim, mean))

	// S = H P H' + R
	temp := mat.NewDense(measureDim, stateDim, nil)
	temp.Mul(kf.updateMat, covariance.Dense)

	temp2 := mat.NewDense(measureDim, measureDim, nil)
	temp2.Mul(temp, kf.updateMat.T())
	temp2.Add(temp2, kf.measurementNoise)

	projectedCov := mat.NewSymDense(measureDim, nil)

	for i := 0; i < measureDim; i++ {
		for j := i; j < measureDim; j++ {
			projectedCov.SetSym(i, j, (temp2.At(i, j)+temp2.At(j, i))/2)
		}
	}

	projectedMean := make([]float64, measureDim)

	for i := 0; i < measureDim; i++ {
		projectedMean[i] = projected.AtVec(i)
	}

	return projectedMean, projectedCov
}
