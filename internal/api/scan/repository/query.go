package scanRepository

const (
	queryCreateScan = `
		INSERT INTO scans (
			id,
			status,
			progress,
			total_images,
			simulated,
			created_at,
			updated_at
		) VALUES (
			:id,
			:status,
			:progress,
			:total_images,
			:simulated,
			:created_at,
			:updated_at
		)
	`

	queryUpdateScan = `
		UPDATE scans
		SET
			status = :status,
			progress = :progress,
			simulated = :simulated,
			updated_at = :updated_at
		WHERE id = :id
	`

	queryGetScanByID = `
		SELECT
			id,
			status,
			progress,
			total_images,
			simulated,
			created_at,
			updated_at
		FROM scans
		WHERE id = :id
	`

	queryGetAllScans = `
		SELECT
			id,
			status,
			progress,
			total_images,
			simulated,
			created_at,
			updated_at
		FROM scans
		ORDER BY created_at DESC
		LIMIT :limit OFFSET :offset
	`

	queryCountAllScans = `
		SELECT COUNT(*)
		FROM scans
	`

	queryInsertResult = `
		INSERT INTO scan_results (
			scan_id,
			position,
			source_ref,
			detection_count,
			severity_level,
			annotated_ref,
			detected_objects,
			created_at
		) VALUES (
			:scan_id,
			:position,
			:source_ref,
			:detection_count,
			:severity_level,
			:annotated_ref,
			:detected_objects,
			:created_at
		)
	`

	queryGetResultsByScanID = `
		SELECT
			scan_id,
			position,
			source_ref,
			detection_count,
			severity_level,
			annotated_ref,
			detected_objects,
			created_at
		FROM scan_results
		WHERE scan_id = :scan_id
		ORDER BY position ASC
	`

	queryDeleteResultsByScanID = `
		DELETE FROM scan_results
		WHERE scan_id = :scan_id
	`
)
