package services

// 业务错误 reason 码，随 kratos errors 返回给调用方。
const (
	ReasonUploadNotFound          = "UPLOAD_NOT_FOUND"
	ReasonChannelNotFound         = "CHANNEL_NOT_FOUND"
	ReasonNotChannelOwner         = "NOT_CHANNEL_OWNER"
	ReasonChunkPositionInvalid    = "CHUNK_POSITION_INVALID"
	ReasonNoChunksUploaded        = "NO_CHUNKS_UPLOADED"
	ReasonUploadChunksNotFinished = "UPLOAD_CHUNKS_NOT_FINISHED"
	ReasonUploadInvalid           = "UPLOAD_INVALID"
)
