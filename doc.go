/*
go-anpr performs Automatic Number Plate Recognition over video files.

Vehicles and license plates are detected on every frame, vehicles are given
stable identities by a SORT tracker, plates are assigned to the vehicle that
contains them and read by an OCR engine. Readings are collected per frame and
track, the best reading of each vehicle is chosen over the whole clip and the
video is re-rendered with the vehicle, its plate and the chosen reading drawn
on every frame the vehicle was seen.

Detectors and plate readers are consumed through the Detector and PlateReader
interfaces. The detect and ocr subpackages provide implementations using
OpenCV DNN with YOLOv8 ONNX models and Tesseract.

See the example/anpr command for usage.
*/
package anpr
