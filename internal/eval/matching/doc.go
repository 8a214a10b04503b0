// Package matching evaluates a single frame: it pairs ground-truth labels
// with detections by rectangle IoU and produces the frame's true/false
// positive counts together with the IoU and centre deviation of each
// matched label.
//
// Three assignment policies are available. AssignAll reproduces the
// reference scoring, where every qualifying (label, detection) pair counts
// as a true positive. AssignGreedy and AssignHungarian are one-to-one.
package matching
