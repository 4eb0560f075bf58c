package entities

// Status is the bare integer every foreign entry point returns.
// Zero is success; every other value is defined by the module.
type Status int32

// StatusOK is the success status shared by all modules.
const StatusOK Status = 0

// OK reports whether the status denotes success.
func (s Status) OK() bool {
	return s == StatusOK
}
