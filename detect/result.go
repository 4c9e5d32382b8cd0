// Package detect holds the object detection results consumed by the ANPR
// pipeline and a YOLOv8 ONNX detector producing them
package detect

import (
	"github.com/swdee/go-anpr/tracker"
)

// Result is a single object found in a frame
type Result struct {
	// Box is the object location in source frame pixel coordinates
	Box tracker.Box
	// Score is the detection confidence
	Score float64
	// Class is the line number in the labels file the Model was trained on
	// defining the Class of the detected object
	Class int
	// ID is a unique ID assigned to the detection result
	ID int64
}

// COCO class IDs treated as vehicles
const (
	ClassCar        = 2
	ClassMotorcycle = 3
	ClassBus        = 5
	ClassTruck      = 7
)

// VehicleClasses returns the COCO classes treated as vehicles, being car,
// motorcycle, bus and truck
func VehicleClasses() []int {
	return []int{ClassCar, ClassMotorcycle, ClassBus, ClassTruck}
}

// FilterClasses returns the results whose class is in classes, keeping their
// order. A nil or empty class list keeps every result
func FilterClasses(results []Result, classes []int) []Result {

	if len(classes) == 0 {
		return results
	}

	keep := make(map[int]struct{}, len(classes))

	for _, c := range classes {
		keep[c] = struct{}{}
	}

	out := make([]Result, 0, len(results))

	for _, r := range results {
		if _, ok := keep[r.Class]; ok {
			out = append(out, r)
		}
	}

	return out
}

// Boxes returns the boxes of the results in order
func Boxes(results []Result) []tracker.Box {

	out := make([]tracker.Box, len(results))

	for i, r := range results {
		out[i] = r.Box
	}

	return out
}
