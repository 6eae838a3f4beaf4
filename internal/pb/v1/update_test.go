package v1

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// wireFields decodes a marshaled message into field number to raw value.
func wireFields(t *testing.T, data []byte) map[protowire.Number]any {
	t.Helper()

	fields := make(map[protowire.Number]any)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		require.GreaterOrEqual(t, n, 0, "tag")
		data = data[n:]

		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeString(data)
			require.GreaterOrEqual(t, m, 0, "string field %d", num)
			fields[num] = v
			data = data[m:]
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			require.GreaterOrEqual(t, m, 0, "varint field %d", num)
			fields[num] = v
			data = data[m:]
		default:
			t.Fatalf("unexpected wire type %d for field %d", typ, num)
		}
	}

	return fields
}

// TestCheckForUpdateRequest_WireFormat pins the field numbers other clients rely on.
func TestCheckForUpdateRequest_WireFormat(t *testing.T) {
	t.Parallel()

	request := &CheckForUpdateRequest{
		Application:    "app",
		Channel:        "stable",
		Platform:       "linux-x64",
		ClientId:       "client-1",
		CurrentVersion: "1.0.0",
	}

	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(request)
	require.NoError(t, err)

	require.Equal(t, map[protowire.Number]any{
		1: "app",
		2: "stable",
		3: "linux-x64",
		4: "client-1",
		5: "1.0.0",
	}, wireFields(t, data))

	decoded := new(CheckForUpdateRequest)
	require.NoError(t, proto.Unmarshal(data, decoded))
	require.True(t, proto.Equal(request, decoded), "got %v", decoded)
}

// TestCheckForUpdateResponse_WireFormat checks the offer layout and that a
// negative answer encodes to nothing.
func TestCheckForUpdateResponse_WireFormat(t *testing.T) {
	t.Parallel()

	response := &CheckForUpdateResponse{
		UpdateAvailable:  true,
		Version:          "1.1.0",
		ArtifactLocation: "https://updates.example.com/files/app",
		Signature:        "MEUCIQ==",
		Checksum:         "9f86d081",
	}

	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(response)
	require.NoError(t, err)

	require.Equal(t, map[protowire.Number]any{
		1: uint64(1),
		2: "1.1.0",
		3: "https://updates.example.com/files/app",
		4: "MEUCIQ==",
		5: "9f86d081",
	}, wireFields(t, data))

	decoded := new(CheckForUpdateResponse)
	require.NoError(t, proto.Unmarshal(data, decoded))
	require.True(t, proto.Equal(response, decoded), "got %v", decoded)

	empty, err := proto.Marshal(&CheckForUpdateResponse{})
	require.NoError(t, err)
	require.Empty(t, empty)
}

// TestFileDescriptor exposes the service under its stable full name.
func TestFileDescriptor(t *testing.T) {
	t.Parallel()

	file := File_update_v1_update_proto
	require.Equal(t, protoreflect.FullName("update.v1"), file.Package())
	require.Equal(t, 1, file.Services().Len())

	service := file.Services().Get(0)
	require.Equal(t, protoreflect.FullName(UpdateService_ServiceDesc.ServiceName), service.FullName())
	require.Equal(t, protoreflect.Name("CheckForUpdate"), service.Methods().Get(0).Name())

	request := (&CheckForUpdateRequest{}).ProtoReflect().Descriptor()
	require.Equal(t, protoreflect.Name("client_id"), request.Fields().ByNumber(4).Name())
	require.Equal(t, "clientId", request.Fields().ByNumber(4).JSONName())
}
