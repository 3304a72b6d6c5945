// Code generated by a hand-authored stand-in for protoc-gen-go. No protoc
// toolchain is available in this environment; these types are written in
// the exact shape protoc-gen-go emitted for pre-APIv2 ("legacy") generated
// code: plain structs with protobuf struct tags plus
// Reset/String/ProtoMessage. google.golang.org/protobuf's legacy-message
// support (protoadapt, invoked by grpc-go's default codec) wraps any such
// type into a full proto.Message at runtime by reflecting over these
// struct tags to synthesize a descriptor, so this is a real code path, not
// a stub.
//
// source: teleworker.proto

package teleworkerv1

import (
	"fmt"
)

// JobStatus mirrors job.Status on the wire.
type JobStatus int32

const (
	JobStatus_JOB_STATUS_UNSPECIFIED JobStatus = 0
	JobStatus_JOB_STATUS_SUBMITTED   JobStatus = 1
	JobStatus_JOB_STATUS_RUNNING     JobStatus = 2
	JobStatus_JOB_STATUS_SUCCESS     JobStatus = 3
	JobStatus_JOB_STATUS_FAILED      JobStatus = 4
	JobStatus_JOB_STATUS_KILLED      JobStatus = 5
)

var jobStatusName = map[JobStatus]string{
	0: "JOB_STATUS_UNSPECIFIED",
	1: "JOB_STATUS_SUBMITTED",
	2: "JOB_STATUS_RUNNING",
	3: "JOB_STATUS_SUCCESS",
	4: "JOB_STATUS_FAILED",
	5: "JOB_STATUS_KILLED",
}

func (s JobStatus) String() string {
	if name, ok := jobStatusName[s]; ok {
		return name
	}
	return fmt.Sprintf("JobStatus(%d)", s)
}

// ResourceLimits is the optional per-job cgroup v2 envelope. A zero value
// in any field means "unset".
type ResourceLimits struct {
	MemoryHighBytes uint64 `protobuf:"varint,1,opt,name=memory_high_bytes,json=memoryHighBytes,proto3" json:"memory_high_bytes,omitempty"`
	MemoryMaxBytes  uint64 `protobuf:"varint,2,opt,name=memory_max_bytes,json=memoryMaxBytes,proto3" json:"memory_max_bytes,omitempty"`
	CpuMaxPercent   uint32 `protobuf:"varint,3,opt,name=cpu_max_percent,json=cpuMaxPercent,proto3" json:"cpu_max_percent,omitempty"`
	CpuWeight       uint32 `protobuf:"varint,4,opt,name=cpu_weight,json=cpuWeight,proto3" json:"cpu_weight,omitempty"`
	IoWeight        uint32 `protobuf:"varint,5,opt,name=io_weight,json=ioWeight,proto3" json:"io_weight,omitempty"`
}

func (m *ResourceLimits) Reset()         { *m = ResourceLimits{} }
func (m *ResourceLimits) String() string { return fmt.Sprintf("%+v", *m) }
func (*ResourceLimits) ProtoMessage()    {}

func (m *ResourceLimits) GetMemoryHighBytes() uint64 {
	if m != nil {
		return m.MemoryHighBytes
	}
	return 0
}

func (m *ResourceLimits) GetMemoryMaxBytes() uint64 {
	if m != nil {
		return m.MemoryMaxBytes
	}
	return 0
}

func (m *ResourceLimits) GetCpuMaxPercent() uint32 {
	if m != nil {
		return m.CpuMaxPercent
	}
	return 0
}

func (m *ResourceLimits) GetCpuWeight() uint32 {
	if m != nil {
		return m.CpuWeight
	}
	return 0
}

func (m *ResourceLimits) GetIoWeight() uint32 {
	if m != nil {
		return m.IoWeight
	}
	return 0
}

type StartJobRequest struct {
	Command string          `protobuf:"bytes,1,opt,name=command,proto3" json:"command,omitempty"`
	Args    []string        `protobuf:"bytes,2,rep,name=args,proto3" json:"args,omitempty"`
	Limits  *ResourceLimits `protobuf:"bytes,3,opt,name=limits,proto3" json:"limits,omitempty"`
}

func (m *StartJobRequest) Reset()         { *m = StartJobRequest{} }
func (m *StartJobRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*StartJobRequest) ProtoMessage()    {}

func (m *StartJobRequest) GetCommand() string {
	if m != nil {
		return m.Command
	}
	return ""
}

func (m *StartJobRequest) GetArgs() []string {
	if m != nil {
		return m.Args
	}
	return nil
}

func (m *StartJobRequest) GetLimits() *ResourceLimits {
	if m != nil {
		return m.Limits
	}
	return nil
}

type StartJobResponse struct {
	JobId string `protobuf:"bytes,1,opt,name=job_id,json=jobId,proto3" json:"job_id,omitempty"`
}

func (m *StartJobResponse) Reset()         { *m = StartJobResponse{} }
func (m *StartJobResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*StartJobResponse) ProtoMessage()    {}

func (m *StartJobResponse) GetJobId() string {
	if m != nil {
		return m.JobId
	}
	return ""
}

type GetJobStatusRequest struct {
	JobId string `protobuf:"bytes,1,opt,name=job_id,json=jobId,proto3" json:"job_id,omitempty"`
}

func (m *GetJobStatusRequest) Reset()         { *m = GetJobStatusRequest{} }
func (m *GetJobStatusRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*GetJobStatusRequest) ProtoMessage()    {}

func (m *GetJobStatusRequest) GetJobId() string {
	if m != nil {
		return m.JobId
	}
	return ""
}

type GetJobStatusResponse struct {
	JobId    string    `protobuf:"bytes,1,opt,name=job_id,json=jobId,proto3" json:"job_id,omitempty"`
	Status   JobStatus `protobuf:"varint,2,opt,name=status,proto3,enum=teleworker.v1.JobStatus" json:"status,omitempty"`
	ExitCode *int32    `protobuf:"varint,3,opt,name=exit_code,json=exitCode,proto3,oneof" json:"exit_code,omitempty"`
}

func (m *GetJobStatusResponse) Reset()         { *m = GetJobStatusResponse{} }
func (m *GetJobStatusResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*GetJobStatusResponse) ProtoMessage()    {}

func (m *GetJobStatusResponse) GetJobId() string {
	if m != nil {
		return m.JobId
	}
	return ""
}

func (m *GetJobStatusResponse) GetStatus() JobStatus {
	if m != nil {
		return m.Status
	}
	return JobStatus_JOB_STATUS_UNSPECIFIED
}

func (m *GetJobStatusResponse) GetExitCode() int32 {
	if m != nil && m.ExitCode != nil {
		return *m.ExitCode
	}
	return 0
}

type StopJobRequest struct {
	JobId string `protobuf:"bytes,1,opt,name=job_id,json=jobId,proto3" json:"job_id,omitempty"`
}

func (m *StopJobRequest) Reset()         { *m = StopJobRequest{} }
func (m *StopJobRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*StopJobRequest) ProtoMessage()    {}

func (m *StopJobRequest) GetJobId() string {
	if m != nil {
		return m.JobId
	}
	return ""
}

type StopJobResponse struct{}

func (m *StopJobResponse) Reset()         { *m = StopJobResponse{} }
func (m *StopJobResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*StopJobResponse) ProtoMessage()    {}

type StreamOutputRequest struct {
	JobId string `protobuf:"bytes,1,opt,name=job_id,json=jobId,proto3" json:"job_id,omitempty"`
}

func (m *StreamOutputRequest) Reset()         { *m = StreamOutputRequest{} }
func (m *StreamOutputRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*StreamOutputRequest) ProtoMessage()    {}

func (m *StreamOutputRequest) GetJobId() string {
	if m != nil {
		return m.JobId
	}
	return ""
}

type StreamOutputResponse struct {
	Data []byte `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *StreamOutputResponse) Reset()         { *m = StreamOutputResponse{} }
func (m *StreamOutputResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*StreamOutputResponse) ProtoMessage()    {}

func (m *StreamOutputResponse) GetData() []byte {
	if m != nil {
		return m.Data
	}
	return nil
}
