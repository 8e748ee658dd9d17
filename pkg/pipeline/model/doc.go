// Package model provides the data structures shared by the pipeline and its observers.
// It defines the description of a stage and the hooks an observer implements to follow a pipeline.
package model
