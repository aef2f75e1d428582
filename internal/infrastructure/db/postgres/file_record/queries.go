package file_record

const (
	columns = `id, file_name, file_type, original_size, asset_id, compressed_asset_id, compressed_size, download_ref, expires_at, created_at`

	InsertFileRecord = `
		INSERT INTO file_records (file_name, file_type, original_size, asset_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + columns

	SelectFileRecordByID = `
		SELECT ` + columns + `
		FROM file_records
		WHERE id = $1
	`
	SelectFileRecordsByIDs = `
		SELECT ` + columns + `
		FROM file_records
		WHERE id = ANY($1::uuid[])
		ORDER BY created_at, id
	`
	UpdateFileRecordCompression = `
		UPDATE file_records
		SET compressed_asset_id = $2,
		    compressed_size = $3,
		    download_ref = $4
		WHERE id = $1
		RETURNING ` + columns

	SelectExpiredFileRecords = `
		SELECT ` + columns + `
		FROM file_records
		WHERE expires_at < $1
		ORDER BY expires_at
	`
	DeleteFileRecordsByIDs = `
		DELETE FROM file_records
		WHERE id = ANY($1::uuid[])
	`
)
