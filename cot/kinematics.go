package cot

import "github.com/NERVsystems/takbridge/errs"

// Kinematics carries an entity's optional motion state: speed in m/s
// (>= 0), course in degrees [0, 360), and a signed vertical rate in
// m/s. All three fields are independently optional, matching how
// sensors frequently report partial kinematic data.
type Kinematics struct {
	speed      float64
	speedSet   bool
	course     float64
	courseSet  bool
	vrate      float64
	vrateSet   bool
}

// KinematicsOption configures a Kinematics value via NewKinematics.
type KinematicsOption func(*Kinematics) error

// WithSpeed sets the speed in m/s; must be >= 0.
func WithSpeed(mps float64) KinematicsOption {
	return func(k *Kinematics) error {
		if err := validateFinite("speed", mps); err != nil {
			return err
		}
		if mps < 0 {
			return errs.Field(errs.KindOutOfRange, "speed", "speed must be >= 0")
		}
		k.speed, k.speedSet = mps, true
		return nil
	}
}

// WithCourse sets the course in degrees; must be in [0, 360).
func WithCourse(deg float64) KinematicsOption {
	return func(k *Kinematics) error {
		if err := validateFinite("course", deg); err != nil {
			return err
		}
		if deg < 0 || deg >= 360 {
			return errs.Field(errs.KindOutOfRange, "course", "course must be in [0,360)")
		}
		k.course, k.courseSet = deg, true
		return nil
	}
}

// WithVerticalRate sets the signed vertical rate in m/s.
func WithVerticalRate(mps float64) KinematicsOption {
	return func(k *Kinematics) error {
		if err := validateFinite("vertical_rate", mps); err != nil {
			return err
		}
		k.vrate, k.vrateSet = mps, true
		return nil
	}
}

// NewKinematics validates and constructs a Kinematics from the given options.
func NewKinematics(opts ...KinematicsOption) (Kinematics, error) {
	var k Kinematics
	for _, opt := range opts {
		if err := opt(&k); err != nil {
			return Kinematics{}, err
		}
	}
	return k, nil
}

// Speed returns the speed in m/s and whether it was set.
func (k Kinematics) Speed() (float64, bool) { return k.speed, k.speedSet }

// Course returns the course in degrees and whether it was set.
func (k Kinematics) Course() (float64, bool) { return k.course, k.courseSet }

// VerticalRate returns the signed vertical rate in m/s and whether it was set.
func (k Kinematics) VerticalRate() (float64, bool) { return k.vrate, k.vrateSet }

// IsZero reports whether no kinematic field has been set.
func (k Kinematics) IsZero() bool {
	return !k.speedSet && !k.courseSet && !k.vrateSet
}
