/*
Package types defines the core data structures of the serverless compute
model: Image, Function, RegisteredFunction, Invocation, and the closed
InvocationState / FailureCause enumerations that drive the head controller's
pipeline (pkg/serverless).

An Invocation moves through a small state machine — Admitted, ImagePulling,
Schedulable, Running, Done — and on failure carries exactly one FailureCause
from a closed set (FunctionNotRegistered, FunctionAlreadyRegistered,
NotEnoughResources, NotEnoughSpace, TimedOut, ServiceDown, HostError); no
other failure reason is ever produced. AdmittedAt, StartedAt, and EndedAt are
simulated-clock offsets (pkg/simclock.Engine.Now), not wall-clock timestamps.
*/
package types
